package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/presbrey/envtree"
	"github.com/presbrey/envtree/workspace"
)

func main() {
	// Build a small monorepo to load from
	root, err := os.MkdirTemp("", "envtree-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(root)

	files := map[string]string{
		"pnpm-lock.yaml":          "lockfileVersion: '9.0'\n",
		".env":                    "API_URL=https://api.example.com\nLOG_LEVEL=info\n",
		".env.development":        "LOG_LEVEL=debug\n",
		"apps/web/.env":           "API_URL=http://localhost:8080\nPORT=3000\n",
		"apps/web/.env.local":     "PORT=3001\n",
		"apps/web/src/.gitignore": "",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			log.Fatal(err)
		}
	}
	start := filepath.Join(root, "apps", "web", "src")

	// Find the workspace root
	det, err := workspace.Locate(start)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Workspace root: %s (%s)\n", det.Root, det.Method)

	// Load into a private store instead of the process environment
	store := envtree.NewMapEnv(map[string]string{"PORT": "9000"})
	opts := envtree.DefaultOptions()
	opts.Dir = start
	opts.Environment = "development"
	opts.Store = store

	res, err := envtree.Load(context.Background(), opts)
	if err != nil {
		log.Fatal(err)
	}
	for i, f := range res.FilesLoaded {
		rel, _ := filepath.Rel(root, f)
		fmt.Printf("  %d. %s\n", i+1, rel)
	}
	fmt.Printf("Merged: API_URL=%s LOG_LEVEL=%s PORT=%s\n", res.Vars["API_URL"], res.Vars["LOG_LEVEL"], res.Vars["PORT"])

	// Variables already in the store keep their value
	port, _ := store.Lookup("PORT")
	fmt.Printf("Store PORT: %s (skipped %v)\n", port, res.Skipped)

	// Only keep variables with a prefix
	opts.Prefix = "LOG_"
	opts.NoSetEnv = true
	res, err = envtree.Load(context.Background(), opts)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Prefixed: %v\n", res.Vars)

	// Run a command with the merged environment
	code, err := envtree.New(opts).Exec(context.Background(), "sh", "-c", `echo "child sees LOG_LEVEL=$LOG_LEVEL"`)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Exit code: %d\n", code)
}
