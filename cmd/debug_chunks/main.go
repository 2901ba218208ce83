package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"chunk-mender/core/chunk"
	"chunk-mender/feature/world"
)

type chunkStatus struct {
	Coord  chunk.Coord `json:"coord"`
	Region string      `json:"region"`
	Slot   int         `json:"slot"`
	Status string      `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// Dumps the decode status of every chunk in a world as JSON, read-only.
// Usage: debug_chunks WORLDDIR [overworld|nether|end]
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: debug_chunks WORLDDIR [overworld|nether|end]")
	}

	sel := world.Overworld
	if len(os.Args) > 2 {
		switch os.Args[2] {
		case "nether":
			sel = world.Nether
		case "end":
			sel = world.End
		case "overworld":
		default:
			log.Fatalf("unknown dimension %q", os.Args[2])
		}
	}

	dim, err := world.OpenDimension(os.Args[1], sel, world.OpenOptions{ReadOnly: true})
	if err != nil {
		log.Fatal(err)
	}
	defer dim.Close()

	ctx := context.Background()
	var statuses []chunkStatus
	malformed := 0
	for coord, err := range dim.AllChunks(ctx) {
		if err != nil {
			log.Fatal(err)
		}
		load, err := dim.LoadChunk(ctx, coord)
		if err != nil {
			log.Fatal(err)
		}
		s := chunkStatus{
			Coord:  coord,
			Region: coord.Region().String(),
			Slot:   coord.Local(),
			Status: load.Status.String(),
		}
		if !load.OK() {
			malformed++
			s.Reason = load.Reason.Error()
		}
		statuses = append(statuses, s)
	}

	out, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
	fmt.Fprintf(os.Stderr, "%d chunks, %d malformed\n", len(statuses), malformed)
}
