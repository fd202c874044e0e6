// SPDX-License-Identifier: MIT

// Command configgen regenerates the configuration reference and the
// example config file from internal/config/registry.go.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reqwatch/reqwatch/internal/config"
)

const (
	configDocPath     = "docs/CONFIGURATION.md"
	configExamplePath = "config.example.yaml"
)

const (
	docBeginMarker = "<!-- BEGIN GENERATED CONFIG OPTIONS -->"
	docEndMarker   = "<!-- END GENERATED CONFIG OPTIONS -->"
)

func main() {
	root := flag.String("root", ".", "repository root to write into")
	flag.Parse()

	entries := config.Registry()

	if err := updateConfigDoc(*root, entries); err != nil {
		fail(err)
	}
	if err := writeExample(*root, entries); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
	os.Exit(1)
}

func updateConfigDoc(root string, entries []config.Entry) error {
	path := filepath.Join(root, configDocPath)
	// #nosec G304 -- repo-local path
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config doc: %w", err)
	}

	out := replaceGeneratedSection(string(raw), buildConfigDoc(entries))
	if err := os.WriteFile(path, []byte(out), 0600); err != nil {
		return fmt.Errorf("write config doc: %w", err)
	}
	return nil
}

// buildConfigDoc renders one table per top-level group, in registry
// order.
func buildConfigDoc(entries []config.Entry) string {
	var b strings.Builder
	b.WriteString(docBeginMarker)
	b.WriteString("\n## Options (Generated)\n\n")
	b.WriteString("This section is generated from `internal/config/registry.go`. Do not edit by hand.\n")

	group := ""
	for _, entry := range entries {
		if g := entryGroup(entry); g != group {
			group = g
			b.WriteString(fmt.Sprintf("\n### %s\n\n", group))
			b.WriteString("| Key | Env | Default | Purpose |\n")
			b.WriteString("| --- | --- | --- | --- |\n")
		}
		doc := entry.Doc
		if entry.Secret {
			doc += " (secret)"
		}
		b.WriteString(fmt.Sprintf("| `%s` | `%s` | `%s` | %s |\n",
			entry.Path, entry.Env, formatDefault(entry.Default), doc))
	}
	b.WriteString("\n")
	b.WriteString(docEndMarker)
	return b.String()
}

func entryGroup(entry config.Entry) string {
	if idx := strings.Index(entry.Path, "."); idx != -1 {
		return entry.Path[:idx]
	}
	return "root"
}

func replaceGeneratedSection(content, generated string) string {
	start := strings.Index(content, docBeginMarker)
	end := strings.Index(content, docEndMarker)
	if start == -1 || end == -1 || end < start {
		return content + "\n" + generated + "\n"
	}
	end += len(docEndMarker)
	return content[:start] + generated + content[end:]
}

func writeExample(root string, entries []config.Entry) error {
	var rootNode yaml.Node
	rootNode.Kind = yaml.MappingNode
	rootNode.HeadComment = "Example reqwatch configuration.\nGenerated by cmd/configgen from internal/config/registry.go. Do not edit by hand."

	for _, entry := range entries {
		node := yamlNodeForValue(entry.Default)
		if entry.Secret {
			node = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "", LineComment: "set " + entry.Env}
		}
		setYamlValue(&rootNode, strings.Split(entry.Path, "."), node)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&rootNode); err != nil {
		return fmt.Errorf("encode example: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode example: %w", err)
	}

	path := filepath.Join(root, configExamplePath)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write example: %w", err)
	}
	return nil
}

// setYamlValue inserts value at the dotted path, creating intermediate
// mappings as needed and preserving insertion order.
func setYamlValue(node *yaml.Node, path []string, value *yaml.Node) {
	if node.Kind != yaml.MappingNode || len(path) == 0 {
		return
	}
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != path[0] {
			continue
		}
		if len(path) == 1 {
			node.Content[i+1] = value
			return
		}
		setYamlValue(node.Content[i+1], path[1:], value)
		return
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: path[0]}
	if len(path) == 1 {
		node.Content = append(node.Content, keyNode, value)
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	setYamlValue(child, path[1:], value)
	node.Content = append(node.Content, keyNode, child)
}

func yamlNodeForValue(def any) *yaml.Node {
	if def == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}
	}
	rv := reflect.ValueOf(def)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for i := 0; i < rv.Len(); i++ {
			seq.Content = append(seq.Content, yamlNodeForValue(rv.Index(i).Interface()))
		}
		return seq
	case reflect.Map:
		return &yaml.Node{Kind: yaml.MappingNode}
	}
	value, tag := yamlScalar(def)
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlScalar(def any) (string, string) {
	switch v := def.(type) {
	case string:
		return v, "!!str"
	case bool:
		return strconv.FormatBool(v), "!!bool"
	case int:
		return strconv.Itoa(v), "!!int"
	case int64:
		return strconv.FormatInt(v, 10), "!!int"
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s, "!!float"
	case time.Duration:
		return formatDuration(v), "!!str"
	default:
		return fmt.Sprintf("%v", v), "!!str"
	}
}

func formatDefault(def any) string {
	switch v := def.(type) {
	case string:
		if v == "" {
			return `""`
		}
		return v
	case time.Duration:
		return formatDuration(v)
	case []string:
		if len(v) == 0 {
			return "[]"
		}
		return strings.Join(v, ",")
	case map[string]config.RuleOverride:
		return "{}"
	default:
		return fmt.Sprintf("%v", def)
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	s := d.String()
	if strings.ContainsAny(s, "hm") {
		s = strings.TrimSuffix(s, "0s")
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}
