package main

import (
	"fmt"
	"log"

	"github.com/theflywheel/strdict"
)

func main() {
	ctx := strdict.NewCtx()
	defer ctx.Close()

	// Intern the same value twice; both calls yield the same handle.
	h1, err := strdict.Insert(ctx, "eth0")
	if err != nil {
		log.Fatalf("Failed to intern: %v", err)
	}
	h2, err := strdict.Insert(ctx, "eth0")
	if err != nil {
		log.Fatalf("Failed to intern: %v", err)
	}
	fmt.Printf("same handle: %v, value: %q\n", h1 == h2, *h1)

	// Register an extra owner without re-hashing the content.
	h3, err := strdict.Duplicate(ctx, h1)
	if err != nil {
		log.Fatalf("Failed to duplicate: %v", err)
	}
	fmt.Printf("duplicated handle: %v\n", h3 == h1)

	// A string assembled for one-shot use can be interned without a copy.
	assembled := "eth" + fmt.Sprint(1)
	h4, err := strdict.InsertNoCopy(ctx, assembled)
	if err != nil {
		log.Fatalf("Failed to intern: %v", err)
	}
	fmt.Printf("zero-copy interned: %q\n", *h4)

	// Balance every owner; the storage is released on the last remove.
	for _, h := range []strdict.Handle{h1, h2, h3, h4} {
		if err := strdict.Remove(ctx, h); err != nil {
			log.Fatalf("Failed to remove: %v", err)
		}
	}

	st := ctx.Pool().Stats()
	fmt.Printf("inserts=%d hits=%d released=%d live=%d\n",
		st.Inserts, st.Hits, st.Released, st.Entries)

	fmt.Println("Example completed successfully")
}
