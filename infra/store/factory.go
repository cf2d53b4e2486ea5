package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilianp07/conformance/core/conformance"
	"github.com/kilianp07/conformance/core/factory"
)

type fileConf struct {
	Path       string `json:"path"`
	RunDir     string `json:"run_dir"`
	Case       string `json:"case"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

func init() {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(Register("memory", func(map[string]any) (conformance.ResultStore, error) {
		return NewMemoryStore(), nil
	}))
	must(Register("json", func(conf map[string]any) (conformance.ResultStore, error) {
		var c fileConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONStore(resolvePath(c.Path, "results_{case}.json", c.RunDir, c.Case))
	}))
	must(Register("jsonl", func(conf map[string]any) (conformance.ResultStore, error) {
		c := fileConf{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(resolvePath(c.Path, "results_{case}.jsonl", c.RunDir, c.Case), c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	}))
	must(Register("sqlite", func(conf map[string]any) (conformance.ResultStore, error) {
		var c fileConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if strings.HasPrefix(c.Path, "file:") {
			return NewSQLiteStore(c.Path)
		}
		// One database per run, shared by its cases.
		return NewSQLiteStore(resolvePath(c.Path, "results.db", c.RunDir, c.Case))
	}))
	must(Register("kafka", func(conf map[string]any) (conformance.ResultStore, error) {
		var c KafkaConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewKafkaStore(c)
	}))
	must(Register("http", func(conf map[string]any) (conformance.ResultStore, error) {
		var c HTTPConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewHTTPStore(c)
	}))
	must(Register("mqtt", func(conf map[string]any) (conformance.ResultStore, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMQTTStore(c)
	}))
}

// Open returns a reader over a results file, chosen by extension.
func Open(path string) (Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return OpenJSONFile(path), nil
	case ".jsonl":
		return OpenJSONLFile(path), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported results file %q", path)
	}
}
