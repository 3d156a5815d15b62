package modpack

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/fsutil"
	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/specialistvlad/modbisect/internal/version"
)

// Metadata file locations inside a jar.
var metadataFiles = []string{"META-INF/mods.toml", "META-INF/neoforge.mods.toml"}

const manifestFile = "META-INF/MANIFEST.MF"

// Pack is a loaded mods directory.
type Pack struct {
	ModsDir string
	Set     *mod.Set
	// Errors are problems not attributable to a single mod.
	Errors []string
}

// modsTOML is the subset of mods.toml the loader reads.
type modsTOML struct {
	Mods []struct {
		ModID       string `toml:"modId"`
		Version     string `toml:"version"`
		DisplayName string `toml:"displayName"`
	} `toml:"mods"`
	Dependencies map[string][]dependencyTOML `toml:"dependencies"`
}

type dependencyTOML struct {
	ModID        string `toml:"modId"`
	Mandatory    *bool  `toml:"mandatory"`
	Type         string `toml:"type"`
	VersionRange string `toml:"versionRange"`
}

// required reads Forge's mandatory flag or NeoForge's type field.
func (d dependencyTOML) required() bool {
	if d.Mandatory != nil {
		return *d.Mandatory
	}
	switch strings.ToLower(d.Type) {
	case "", "required":
		return true
	default:
		return false
	}
}

type loadOptions struct {
	set      []mod.SetOption
	disabled bool
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithSetOptions passes opts to the mod set Load creates.
func WithSetOptions(opts ...mod.SetOption) LoadOption {
	return func(o *loadOptions) { o.set = append(o.set, opts...) }
}

// IncludeDisabled also loads jars the user disabled.
func IncludeDisabled() LoadOption {
	return func(o *loadOptions) { o.disabled = true }
}

// Load reads every loadable jar in modsDir. Enabled jars and jars left
// disabled by an interrupted search are loaded; user-disabled ones only with
// IncludeDisabled.
func Load(ctx context.Context, modsDir string, opts ...LoadOption) (*Pack, error) {
	logger := ctxlog.FromContext(ctx)
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	suffixes := []string{mod.JarSuffix, mod.JarSuffix + mod.TempDisabledSuffix}
	if o.disabled {
		suffixes = append(suffixes, mod.JarSuffix+mod.DisabledSuffix)
	}
	names, err := fsutil.ListFiles(modsDir, suffixes...)
	if err != nil {
		return nil, fmt.Errorf("listing mods: %w", err)
	}
	p := &Pack{ModsDir: modsDir, Set: mod.NewSet(o.set...)}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.loadFile(ctx, name); err != nil {
			logger.Warn("Skipping unreadable jar.", "file", name, "error", err)
			p.Errors = append(p.Errors, fmt.Sprintf("failed to read %q: %v", name, err))
		}
	}
	logger.Info("Mods loaded.", "files", len(names), "mods", p.Set.Len(), "errors", len(p.Errors))
	return p, nil
}

func (p *Pack) loadFile(ctx context.Context, name string) error {
	zr, err := zip.OpenReader(filepath.Join(p.ModsDir, name))
	if err != nil {
		return err
	}
	defer zr.Close()

	var found []*mod.Mod
	if err := readJar(ctx, &zr.Reader, name, &found); err != nil {
		return err
	}
	if len(found) == 0 {
		p.Errors = append(p.Errors, fmt.Sprintf("failed to locate a mod in jar %q", name))
		return nil
	}

	owner := found[0]
	owner.Artifact = mod.NewArtifact(p.ModsDir, name)
	for _, m := range found {
		if m != owner {
			m.Parent = owner
			m.Dependencies = append(m.Dependencies, &mod.Requirement{ModID: owner.ID, Required: true, Ranges: version.AnyRange()})
		}
		if err := p.Set.Add(m); err != nil {
			prev, _ := p.Set.Get(m.ID)
			p.Errors = append(p.Errors, fmt.Sprintf("mod %q in %q is already provided by %q", m.ID, name, prev.JarName()))
		}
	}
	return nil
}

// readJar appends the mods declared by zr and then by every nested jar.
func readJar(ctx context.Context, zr *zip.Reader, path string, found *[]*mod.Mod) error {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var man manifest
	if f, ok := files[manifestFile]; ok {
		data, err := readZipFile(f)
		if err != nil {
			return fmt.Errorf("%s!%s: %w", path, manifestFile, err)
		}
		man = parseManifest(string(data))
	}
	for _, meta := range metadataFiles {
		f, ok := files[meta]
		if !ok {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return fmt.Errorf("%s!%s: %w", path, meta, err)
		}
		mods, err := parseMetadata(data, man)
		if err != nil {
			return fmt.Errorf("%s!%s: %w", path, meta, err)
		}
		*found = append(*found, mods...)
		break
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, mod.JarSuffix) {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return fmt.Errorf("%s!%s: %w", path, f.Name, err)
		}
		nested, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			ctxlog.FromContext(ctx).Debug("Nested entry is not a jar.", "jar", path, "entry", f.Name, "error", err)
			continue
		}
		if err := readJar(ctx, nested, path+"!"+f.Name, found); err != nil {
			return err
		}
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseMetadata turns one mods.toml into mods with their dependencies.
func parseMetadata(data []byte, man manifest) ([]*mod.Mod, error) {
	var doc modsTOML
	if err := toml.Unmarshal(data, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("toml %d:%d: %w", row, col, err)
		}
		return nil, err
	}

	var out []*mod.Mod
	for _, entry := range doc.Mods {
		id, _ := man.expand(entry.ModID)
		if id == "" {
			continue
		}
		name, _ := man.expand(entry.DisplayName)
		if name == "" {
			name = id
		}
		m := mod.New(id, name, version.Any)

		raw, missing := man.expand(entry.Version)
		for _, ph := range missing {
			m.AddError(fmt.Sprintf("cannot resolve %s from the jar manifest", ph))
		}
		if v, err := version.Parse(raw); err == nil {
			m.Version = v
		} else if len(missing) == 0 {
			m.AddError(fmt.Sprintf("invalid version %q", raw))
		}

		for _, dep := range doc.Dependencies[id] {
			rangeRaw, _ := man.expand(dep.VersionRange)
			req, err := mod.NewRequirement(dep.ModID, dep.required(), rangeRaw)
			if err != nil {
				m.AddError(fmt.Sprintf("dependency %q has invalid version range %q", dep.ModID, dep.VersionRange))
				continue
			}
			m.Dependencies = append(m.Dependencies, req)
		}
		out = append(out, m)
	}
	return out, nil
}
