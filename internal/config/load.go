package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/fsutil"
	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot is the set of top-level blocks a configuration file may contain.
// Attributes are pointers or slices so that absent ones leave earlier values
// alone.
type fileRoot struct {
	Instance     *instanceBlock     `hcl:"instance,block"`
	Search       *searchBlock       `hcl:"search,block"`
	ProcessMatch *processMatchBlock `hcl:"process_match,block"`
	Overrides    *overridesBlock    `hcl:"overrides,block"`
}

type instanceBlock struct {
	GameDir    *string  `hcl:"game_dir,optional"`
	Command    []string `hcl:"command,optional"`
	WorkingDir *string  `hcl:"working_dir,optional"`
	ModsDir    *string  `hcl:"mods_dir,optional"`
	CrashDir   *string  `hcl:"crash_dir,optional"`
	LogsDir    *string  `hcl:"logs_dir,optional"`
	LogFiles   []string `hcl:"log_files,optional"`
}

type searchBlock struct {
	PerModTimeout  *string  `hcl:"per_mod_timeout,optional"`
	MinTimeout     *string  `hcl:"min_timeout,optional"`
	SettleDelay    *string  `hcl:"settle_delay,optional"`
	PollInterval   *string  `hcl:"poll_interval,optional"`
	KillGrace      *string  `hcl:"kill_grace,optional"`
	LogTailBytes   *int64   `hcl:"log_tail_bytes,optional"`
	ReservedIDs    []string `hcl:"reserved_ids,optional"`
	DisableCascade *string  `hcl:"disable_cascade,optional"`
}

type processMatchBlock struct {
	Name *string `hcl:"name,optional"`
	Arg  *string `hcl:"arg,optional"`
}

type overridesBlock struct {
	Versions   map[string]string `hcl:"versions,optional"`
	LieDepends []string          `hcl:"lie_depends,optional"`
}

// Load starts from Default and applies each path in order. A path may be a
// file or a directory searched recursively for .hcl files. Paths that do not
// exist are skipped.
func Load(ctx context.Context, paths ...string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Config loader started.", "path_count", len(paths))

	files, err := findConfigFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered config files.", "count", len(files))

	cfg := Default()
	parser := hclparse.NewParser()
	evalCtx := evalContext()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse config file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode config file %s: %w", file, diags)
		}
		if err := root.apply(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", file, err)
		}
		logger.Debug("Config file applied.", "file", file)
	}
	return cfg, nil
}

func findConfigFiles(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return out, nil
}

// evalContext exposes env.NAME and home to configuration expressions.
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	home, _ := os.UserHomeDir()
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":  cty.ObjectVal(env),
			"home": cty.StringVal(home),
		},
	}
}

func (r *fileRoot) apply(cfg *Config) error {
	if b := r.Instance; b != nil {
		in := &cfg.Instance
		setString(&in.GameDir, b.GameDir)
		setString(&in.WorkingDir, b.WorkingDir)
		setString(&in.ModsDir, b.ModsDir)
		setString(&in.CrashDir, b.CrashDir)
		setString(&in.LogsDir, b.LogsDir)
		if b.Command != nil {
			in.Command = b.Command
		}
		if b.LogFiles != nil {
			in.LogFiles = b.LogFiles
		}
	}

	if b := r.Search; b != nil {
		s := &cfg.Search
		for _, d := range []struct {
			name string
			raw  *string
			dst  *time.Duration
		}{
			{"per_mod_timeout", b.PerModTimeout, &s.PerModTimeout},
			{"min_timeout", b.MinTimeout, &s.MinTimeout},
			{"settle_delay", b.SettleDelay, &s.SettleDelay},
			{"poll_interval", b.PollInterval, &s.PollInterval},
			{"kill_grace", b.KillGrace, &s.KillGrace},
		} {
			if d.raw == nil {
				continue
			}
			v, err := time.ParseDuration(*d.raw)
			if err != nil {
				return fmt.Errorf("%w: search.%s: %w", ErrInvalid, d.name, err)
			}
			*d.dst = v
		}
		if b.LogTailBytes != nil {
			s.LogTailBytes = *b.LogTailBytes
		}
		if b.ReservedIDs != nil {
			s.ReservedIDs = b.ReservedIDs
		}
		if b.DisableCascade != nil {
			c, err := mod.ParseDisableCascade(*b.DisableCascade)
			if err != nil {
				return fmt.Errorf("%w: search.disable_cascade: %w", ErrInvalid, err)
			}
			s.DisableCascade = c
		}
	}

	if b := r.ProcessMatch; b != nil {
		setString(&cfg.ProcessMatch.Name, b.Name)
		setString(&cfg.ProcessMatch.Arg, b.Arg)
	}

	if b := r.Overrides; b != nil {
		for id, v := range b.Versions {
			cfg.Overrides.Versions[id] = v
		}
		cfg.Overrides.LieDepends = append(cfg.Overrides.LieDepends, b.LieDepends...)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
