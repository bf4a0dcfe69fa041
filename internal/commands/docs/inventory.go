package docs

import (
	"bufio"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	ErrInventoryVersion = errors.New("invalid objects.inv file version")
	ErrNotCompressed    = errors.New("invalid objects.inv file, not zlib compressed")
)

var entryPattern = regexp.MustCompile(`^(.+?)\s+(\S*:\S*)\s+(-?\d+)\s+(\S+)\s+(.*)$`)

// ParseInventory reads a Sphinx objects.inv (version 2) and maps display keys
// to absolute URLs under baseURL. Standard-domain entries are prefixed with
// their role, e.g. "label:intro".
func ParseInventory(r io.Reader, baseURL string) (map[string]string, error) {
	br := bufio.NewReader(r)
	header := make([]string, 4)
	for i := range header {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read inventory header: %w", err)
		}
		header[i] = strings.TrimRight(line, "\r\n")
	}
	if header[0] != "# Sphinx inventory version 2" {
		return nil, ErrInventoryVersion
	}
	project := strings.TrimPrefix(header[1], "# Project: ")
	if !strings.Contains(header[3], "zlib") {
		return nil, ErrNotCompressed
	}

	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("open inventory body: %w", err)
	}
	defer zr.Close()

	baseURL = strings.TrimRight(baseURL, "/")
	result := make(map[string]string)
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		m := entryPattern.FindStringSubmatch(strings.TrimRight(sc.Text(), " \t"))
		if m == nil {
			continue
		}
		name, directive, location, display := m[1], m[2], m[4], m[5]
		domain, role, _ := strings.Cut(directive, ":")
		if directive == "py:module" {
			if _, ok := result[name]; ok {
				continue
			}
		}
		if directive == "std:doc" {
			role = "label"
		}
		if strings.HasSuffix(location, "$") {
			location = strings.TrimSuffix(location, "$") + name
		}

		key := display
		if display == "-" {
			key = name
		}
		if project == "discord.py" {
			key = strings.ReplaceAll(key, "discord.ext.commands.", "")
			key = strings.ReplaceAll(key, "discord.", "")
		}
		if domain == "std" {
			key = role + ":" + key
		}
		result[key] = baseURL + "/" + location
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read inventory body: %w", err)
	}
	return result, nil
}
