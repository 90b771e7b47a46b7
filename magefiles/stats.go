//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
)

const seedDir = "internal/sqlite/seeds"

// packageStats is the line count of one Go package directory.
type packageStats struct {
	Dir   string `json:"dir"`
	Files int    `json:"files"`
	Prod  int    `json:"prod"`
	Test  int    `json:"test"`
}

// seedStats describes one built-in example creation.
type seedStats struct {
	File     string `json:"file"`
	ID       string `json:"id"`
	HTMLSize int    `json:"html_bytes"`
}

// Stats prints Go lines per package and the built-in examples. Set
// STATS_JSON=1 for one JSON object instead of tables.
func Stats() error {
	pkgs, err := packageLines(".")
	if err != nil {
		return err
	}
	seeds, err := seedExamples(seedDir)
	if err != nil {
		return err
	}

	if os.Getenv("STATS_JSON") != "" {
		line, err := json.Marshal(map[string]any{"packages": pkgs, "seeds": seeds})
		if err != nil {
			return err
		}
		fmt.Println(string(line))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tFILES\tPROD\tTEST")
	var prod, test int
	for _, p := range pkgs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", p.Dir, p.Files, p.Prod, p.Test)
		prod += p.Prod
		test += p.Test
	}
	fmt.Fprintf(tw, "total\t\t%d\t%d\n", prod, test)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SEED\tID\tHTML BYTES")
	for _, s := range seeds {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.File, s.ID, s.HTMLSize)
	}
	return tw.Flush()
}

// packageLines groups non-magefile Go sources under root by directory.
func packageLines(root string) ([]packageStats, error) {
	byDir := map[string]*packageStats{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case "vendor", ".git", binaryDir, "_examples", "magefiles":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return err
		}
		dir := filepath.ToSlash(filepath.Dir(path))
		p, ok := byDir[dir]
		if !ok {
			p = &packageStats{Dir: dir}
			byDir[dir] = p
		}
		p.Files++
		if strings.HasSuffix(path, "_test.go") {
			p.Test += n
		} else {
			p.Prod += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]packageStats, 0, len(byDir))
	for _, p := range byDir {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dir < out[j].Dir })
	return out, nil
}

// seedExamples reads the id and html size of every seed document in dir.
func seedExamples(dir string) ([]seedStats, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]seedStats, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc struct {
			ID   string `json:"id"`
			HTML string `json:"html"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, seedStats{File: filepath.Base(path), ID: doc.ID, HTMLSize: len(doc.HTML)})
	}
	return out, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
