package modpack

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/modbisect/internal/ctxlog"
	"github.com/specialistvlad/modbisect/internal/mod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jarBytes builds an in-memory jar from name -> content.
func jarBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeJar(t *testing.T, dir, name string, files map[string][]byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), jarBytes(t, files), 0o644))
}

func modsToml(body string) map[string][]byte {
	return map[string][]byte{"META-INF/mods.toml": []byte(body)}
}

const jeiToml = `
modLoader = "javafml"
loaderVersion = "[47,)"
license = "MIT"

[[mods]]
modId = "jei"
version = "${file.jarVersion}"
displayName = "Just Enough Items"
description = '''
A multi-line
description.
'''

[[dependencies.jei]]
modId = "forge"
mandatory = true
versionRange = "${forge_version_range}"
ordering = "NONE"
side = "BOTH"

[[dependencies.jei]]
modId = "minecraft"
mandatory = true
versionRange = "[1.20.1,1.21)"
ordering = "NONE"
side = "BOTH"
`

const libToml = `
[[mods]]
modId = "corelib"
version = "2.1.0"
displayName = "Core Lib"
`

const addonToml = `
[[mods]]
modId = "addon"
version = "1.0.0"
displayName = "Addon"

[[dependencies.addon]]
modId = "corelib"
mandatory = true
versionRange = "[2.0,3.0)"

[[dependencies.addon]]
modId = "jei"
mandatory = false
versionRange = "*"

[[dependencies.addon]]
modId = "ghost"
mandatory = true
versionRange = "[1.0,)"
`

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func newModsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	jei := modsToml(jeiToml)
	jei["META-INF/MANIFEST.MF"] = []byte("Manifest-Version: 1.0\r\nImplementation-Version: 15.2.0.27\r\n\r\n")
	writeJar(t, dir, "jei-1.20.1.jar", jei)
	writeJar(t, dir, "corelib.jar", modsToml(libToml))
	writeJar(t, dir, "addon.jar.tempdisabled", modsToml(addonToml))
	writeJar(t, dir, "user-off.jar.disabled", modsToml(`[[mods]]
modId = "useroff"
version = "1"
`))
	writeJar(t, dir, "resources.jar", map[string][]byte{"assets/readme.txt": []byte("no mod here")})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := newModsDir(t)

	p, err := Load(testContext(), dir)

	require.NoError(t, err)
	assert.Equal(t, []string{"addon", "corelib", "jei"}, p.Set.IDs())
	assert.Equal(t, []string{`failed to locate a mod in jar "resources.jar"`}, p.Errors)

	jei, _ := p.Set.Get("jei")
	assert.Equal(t, "Just Enough Items", jei.Name)
	assert.Equal(t, "15.2.0.27", jei.Version.Raw())
	assert.Equal(t, "jei-1.20.1.jar", jei.FileName())
	require.Len(t, jei.Dependencies, 2)
	assert.Equal(t, "*", jei.Dependencies[0].String())
	assert.True(t, jei.Dependencies[0].Required)

	addon, _ := p.Set.Get("addon")
	assert.Equal(t, mod.StateTempDisabled, addon.State(), "transient jars load so an interrupted run can be inspected")
	require.Len(t, addon.Dependencies, 3)
	assert.False(t, addon.Dependencies[1].Required)
}

func TestLoad_IncludeDisabled(t *testing.T) {
	dir := newModsDir(t)

	p, err := Load(testContext(), dir, IncludeDisabled(), WithSetOptions(mod.WithCascade(mod.CascadeNone)))

	require.NoError(t, err)
	assert.Equal(t, []string{"addon", "corelib", "jei", "useroff"}, p.Set.IDs())
	useroff, _ := p.Set.Get("useroff")
	assert.Equal(t, mod.StateDisabled, useroff.State())
	assert.Equal(t, mod.CascadeNone, p.Set.Cascade())

	changed, err := p.Set.SetPermanent(useroff, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.FileExists(t, filepath.Join(dir, "user-off.jar"))
}

func TestLoad_NestedJarsShareTheirContainer(t *testing.T) {
	dir := t.TempDir()
	inner := jarBytes(t, modsToml(`[[mods]]
modId = "bundled"
version = "0.5"
`))
	outer := modsToml(`[[mods]]
modId = "bigmod"
version = "3.0"
displayName = "Big Mod"
`)
	outer["META-INF/jarjar/bundled-0.5.jar"] = inner
	writeJar(t, dir, "bigmod.jar", outer)

	p, err := Load(testContext(), dir)
	require.NoError(t, err)
	assert.Empty(t, p.Errors)

	bundled, ok := p.Set.Get("bundled")
	require.True(t, ok)
	assert.Nil(t, bundled.Artifact)
	assert.Equal(t, mod.NoFile, bundled.FileName())
	require.NotNil(t, bundled.Parent)
	assert.Equal(t, "bigmod", bundled.Parent.ID)
	req, ok := bundled.DependsOn("bigmod")
	require.True(t, ok)
	assert.True(t, req.Required)
}

func TestLoad_NeoForgeAndPlainLibraryContainer(t *testing.T) {
	dir := t.TempDir()
	lib := jarBytes(t, map[string][]byte{"META-INF/neoforge.mods.toml": []byte(`[[mods]]
modId = "neolib"
version = "1.2.3"

[[dependencies.neolib]]
modId = "neoforge"
type = "required"
versionRange = "[20.4,)"

[[dependencies.neolib]]
modId = "jei"
type = "optional"
`)})
	writeJar(t, dir, "container.jar", map[string][]byte{"META-INF/jars/neolib.jar": lib})

	p, err := Load(testContext(), dir)
	require.NoError(t, err)

	neolib, ok := p.Set.Get("neolib")
	require.True(t, ok)
	assert.Equal(t, "container.jar", neolib.FileName(), "first mod in a plain container owns the file")
	require.Len(t, neolib.Dependencies, 2)
	assert.True(t, neolib.Dependencies[0].Required)
	assert.False(t, neolib.Dependencies[1].Required)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	writeJar(t, dir, "badrange.jar", modsToml(`[[mods]]
modId = "badrange"
version = "1.0"

[[dependencies.badrange]]
modId = "x"
mandatory = true
versionRange = "@@@"
`))
	writeJar(t, dir, "noversion.jar", modsToml(`[[mods]]
modId = "noversion"
version = "${file.jarVersion}"
`))
	writeJar(t, dir, "broken.jar", modsToml(`[[mods]
modId = `))
	writeJar(t, dir, "dup.jar", modsToml(`[[mods]]
modId = "badrange"
version = "2.0"
`))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notazip.jar"), []byte("nope"), 0o644))

	p, err := Load(testContext(), dir)
	require.NoError(t, err)

	badrange, _ := p.Set.Get("badrange")
	assert.Equal(t, []string{`dependency "x" has invalid version range "@@@"`}, badrange.Errors)
	assert.Empty(t, badrange.Dependencies)
	assert.Equal(t, "1.0", badrange.Version.Raw(), "the first jar providing an id wins")

	noversion, _ := p.Set.Get("noversion")
	assert.Equal(t, []string{"cannot resolve ${file.jarVersion} from the jar manifest"}, noversion.Errors)

	assert.Len(t, p.Errors, 3)
	assert.Contains(t, p.Errors[0], "broken.jar")
	assert.Equal(t, `mod "badrange" in "dup.jar" is already provided by "badrange.jar"`, p.Errors[1])
	assert.Contains(t, p.Errors[2], "notazip.jar")
}

func TestValidateAndWhyDepends(t *testing.T) {
	p, err := Load(testContext(), newModsDir(t))
	require.NoError(t, err)

	bad := p.Validate("minecraft", "forge")

	require.Len(t, bad, 1)
	assert.Equal(t, "addon", bad[0].ID)
	assert.Equal(t, []string{"requires ghost [1.0,), which is not installed"}, bad[0].Errors)
	assert.Equal(t, 2, p.ProblemCount(bad))

	why, err := p.WhyDepends("corelib", false)
	require.NoError(t, err)
	want := []Edge{{ModID: "addon", Name: "Addon", Required: true, Installed: true, Versions: "[2.0,3.0)", Satisfied: true}}
	if diff := cmp.Diff(want, why.Dependents); diff != "" {
		t.Errorf("dependents mismatch (-want +got):\n%s", diff)
	}

	why, err = p.WhyDepends("addon", true)
	require.NoError(t, err)
	require.Len(t, why.Dependencies, 1)
	assert.Equal(t, "ghost", why.Dependencies[0].ModID)
	assert.False(t, why.Dependencies[0].Installed)

	_, err = p.WhyDepends("nope", false)
	require.ErrorIs(t, err, ErrUnknownMod)
}

func TestOverrides(t *testing.T) {
	p, err := Load(testContext(), newModsDir(t))
	require.NoError(t, err)

	overrides, err := ParseVersionOverrides("corelib=1.0, minecraft=1.20.1")
	require.NoError(t, err)
	require.NoError(t, p.OverrideVersions(overrides))

	corelib, _ := p.Set.Get("corelib")
	assert.Equal(t, "1.0", corelib.Version.Raw())
	mc, ok := p.Set.Get("minecraft")
	require.True(t, ok)
	assert.Nil(t, mc.Artifact, "synthetic mods have no file")

	bad := p.Validate()
	var ids []string
	for _, m := range bad {
		ids = append(ids, m.ID)
	}
	// corelib 1.0 no longer satisfies addon.
	assert.Contains(t, ids, "corelib")

	p2, err := Load(testContext(), newModsDir(t))
	require.NoError(t, err)
	require.NoError(t, p2.OverrideVersions(map[string]string{"corelib": "1.0"}))
	p2.LieDepends(ParseIDList("addon, unknown"))
	addon, _ := p2.Set.Get("addon")
	req, _ := addon.DependsOn("corelib")
	assert.Equal(t, "[1.0]", req.String())
	corelib2, _ := p2.Set.Get("corelib")
	assert.True(t, req.Validate(corelib2))

	_, err = ParseVersionOverrides("novalue")
	require.ErrorIs(t, err, ErrBadOverride)
}

func TestManagement(t *testing.T) {
	dir := newModsDir(t)
	listing := func() []string {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return names
	}

	n, err := Clean(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, listing(), "addon.jar")
	assert.Contains(t, listing(), "user-off.jar.disabled", "clean keeps user choices")

	n, err = DisableAll(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{
		"addon.jar.disabled", "corelib.jar.disabled", "jei-1.20.1.jar.disabled",
		"notes.txt", "resources.jar.disabled", "user-off.jar.disabled",
	}, listing())

	n, err = EnableAll(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{
		"addon.jar", "corelib.jar", "jei-1.20.1.jar", "notes.txt", "resources.jar", "user-off.jar",
	}, listing())
}
