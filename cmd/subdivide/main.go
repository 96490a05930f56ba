// Command subdivide applies Catmull-Clark subdivision to a quad-mesh OBJ file.
//
// Usage:
//
//	subdivide -in cube.obj -out cube3.obj -depth 3
//	subdivide -in cube.obj -depth 2 -preview cube2.png
//	subdivide -in cube.obj -out cube2.obj -depth 2 -gpu
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/subdiv"
	"github.com/gogpu/subdiv/gpu"
	"github.com/gogpu/subdiv/objfile"
	"github.com/gogpu/subdiv/preview"
)

func main() {
	var (
		in          = flag.String("in", "", "input OBJ file (quads only)")
		out         = flag.String("out", "", "output OBJ file")
		depth       = flag.Int("depth", 1, "number of subdivision levels")
		workers     = flag.Int("workers", 0, "CPU worker count (0 = GOMAXPROCS)")
		useGPU      = flag.Bool("gpu", false, "refine on the GPU")
		previewPath = flag.String("preview", "", "write a wireframe PNG of the result")
		size        = flag.Int("size", 512, "preview image size in pixels")
		verbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *out == "" && *previewPath == "" {
		log.Fatal("nothing to do: set -out and/or -preview")
	}
	if *verbose {
		subdiv.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	mesh, err := objfile.Load(*in)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *in, err)
	}
	log.Printf("Loaded %s: %d vertices, %d faces, %d edges",
		*in, mesh.NumVerts(), mesh.NumFaces(), mesh.NumEdges())

	start := time.Now()
	result := refine(mesh, *depth, *workers, *useGPU)
	log.Printf("Refined to depth %d in %v: %d vertices, %d faces",
		*depth, time.Since(start), result.NumVerts(), result.NumFaces())

	if *out != "" {
		if err := objfile.Save(*out, result); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Mesh saved to %s", *out)
	}
	if *previewPath != "" {
		if err := preview.SavePNG(*previewPath, result, preview.WithSize(*size, *size)); err != nil {
			log.Fatalf("Failed to save preview: %v", err)
		}
		log.Printf("Preview saved to %s (%dx%d)", *previewPath, *size, *size)
	}
}

func refine(mesh *subdiv.Mesh, depth, workers int, useGPU bool) *subdiv.Mesh {
	if useGPU {
		gr, err := gpu.New()
		if err != nil {
			log.Printf("GPU unavailable, falling back to CPU: %v", err)
		} else {
			defer gr.Close()
			result, err := gr.RefineTo(mesh, depth)
			if err != nil {
				log.Fatalf("GPU refine: %v", err)
			}
			return result
		}
	}

	r := subdiv.NewRefiner(subdiv.WithWorkers(workers))
	defer r.Close()
	return r.RefineTo(mesh, depth)
}
