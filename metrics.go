package strdict

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a pool's counters as prometheus metrics. Register it
// with a prometheus.Registerer to scrape interning behavior:
//
//	prometheus.MustRegister(strdict.NewCollector(pool, "myapp"))
type Collector struct {
	pool *Pool

	entries  *prometheus.Desc
	inserts  *prometheus.Desc
	hits     *prometheus.Desc
	removes  *prometheus.Desc
	released *prometheus.Desc
	notFound *prometheus.Desc
	leaked   *prometheus.Desc
}

// NewCollector returns a collector for pool. An empty namespace defaults to
// "strdict".
func NewCollector(pool *Pool, namespace string) *Collector {
	if namespace == "" {
		namespace = "strdict"
	}
	fq := func(name string) string {
		return prometheus.BuildFQName(namespace, "pool", name)
	}
	return &Collector{
		pool: pool,
		entries: prometheus.NewDesc(fq("entries"),
			"Number of live interned strings.", nil, nil),
		inserts: prometheus.NewDesc(fq("inserts_total"),
			"Records created by insert misses.", nil, nil),
		hits: prometheus.NewDesc(fq("hits_total"),
			"Lookups resolved to an existing record.", nil, nil),
		removes: prometheus.NewDesc(fq("removes_total"),
			"References released.", nil, nil),
		released: prometheus.NewDesc(fq("released_total"),
			"Records freed on last release.", nil, nil),
		notFound: prometheus.NewDesc(fq("not_found_total"),
			"Remove or duplicate calls that missed.", nil, nil),
		leaked: prometheus.NewDesc(fq("leaked_total"),
			"Records still referenced when the pool was closed.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.inserts
	ch <- c.hits
	ch <- c.removes
	ch <- c.released
	ch <- c.notFound
	ch <- c.leaked
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Entries))
	ch <- prometheus.MustNewConstMetric(c.inserts, prometheus.CounterValue, float64(st.Inserts))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.removes, prometheus.CounterValue, float64(st.Removes))
	ch <- prometheus.MustNewConstMetric(c.released, prometheus.CounterValue, float64(st.Released))
	ch <- prometheus.MustNewConstMetric(c.notFound, prometheus.CounterValue, float64(st.NotFound))
	ch <- prometheus.MustNewConstMetric(c.leaked, prometheus.CounterValue, float64(st.Leaked))
}
