// Package prompt holds the instructions and response schema sent to the model.
// Files under PROMPT_DIR (<name>.system.txt, <name>.user.txt, <name>.schema.json)
// take precedence over the embedded copies.
package prompt

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed files/*
var embedded embed.FS

const Detect = "detect"

type Set struct {
	System string
	User   string
	Schema map[string]any
}

// Load собирает system/user/schema для name; при dir == "" только встроенные файлы.
func Load(name, dir string) (Set, error) {
	system, err := loadText(name+".system.txt", dir)
	if err != nil {
		return Set{}, err
	}
	user, err := loadText(name+".user.txt", dir)
	if err != nil {
		return Set{}, err
	}
	schema, err := LoadSchema(name, dir)
	if err != nil {
		return Set{}, err
	}
	return Set{System: system, User: user, Schema: schema}, nil
}

// MustDefault returns the embedded detect prompts; the embedded files are covered by tests.
func MustDefault() Set {
	s, err := Load(Detect, "")
	if err != nil {
		panic(err)
	}
	return s
}

func LoadSchema(name, dir string) (map[string]any, error) {
	b, err := readFile(name+".schema.json", dir)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("bad %s schema: %w", name, err)
	}
	return m, nil
}

func loadText(file, dir string) (string, error) {
	b, err := readFile(file, dir)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", fmt.Errorf("prompt %s is empty", file)
	}
	return s, nil
}

func readFile(file, dir string) ([]byte, error) {
	if dir != "" {
		if b, err := os.ReadFile(filepath.Join(dir, file)); err == nil && len(b) > 0 {
			return b, nil
		}
	}
	b, err := embedded.ReadFile("files/" + file)
	if err != nil {
		return nil, fmt.Errorf("prompt %q not found in %q or embedded files: %w", file, dir, err)
	}
	return b, nil
}
