package systemtypes

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jresolve/internal/name"
	"jresolve/internal/resolver"
)

func TestDefault_Lookups(t *testing.T) {
	u, err := Default()
	require.NoError(t, err)

	list, ok := u.MemberType(name.PackageNamed("java.util"), "List")
	require.True(t, ok)
	assert.Equal(t, "/java/util/List", list.ToInternalNameString())

	ti, ok := u.Resolve(list)
	require.True(t, ok)
	assert.True(t, ti.IsInterface())
	assert.Nil(t, ti.SuperType)
	require.Len(t, ti.Interfaces, 1)
	assert.Equal(t, "java.util.Collection", ti.Interfaces[0].ToDottedString())
	assert.True(t, ti.Complete)

	obj, ok := u.Canonical("java.lang.Object")
	require.True(t, ok)
	objInfo, _ := u.Resolve(obj)
	assert.Nil(t, objInfo.SuperType)

	str, _ := u.Canonical("java.lang.String")
	strInfo, _ := u.Resolve(str)
	assert.True(t, strInfo.SuperType.Equal(obj))
	assert.True(t, strInfo.Modifiers.Has(resolver.ModFinal))
	_, ok = strInfo.Field("CASE_INSENSITIVE_ORDER")
	assert.True(t, ok)

	_, ok = u.MemberType(name.PackageNamed("java.util"), "Nope")
	assert.False(t, ok)
}

func TestDefault_NestedAndInheritedTypes(t *testing.T) {
	u, err := Default()
	require.NoError(t, err)

	entry, ok := u.Canonical("java.util.Map.Entry")
	require.True(t, ok)
	assert.Equal(t, "/java/util/Map$Entry", entry.ToInternalNameString())

	hashMap, _ := u.Canonical("java.util.HashMap")
	inherited, ok := u.MemberType(hashMap, "Entry")
	require.True(t, ok, "Entry is inherited through Map")
	assert.True(t, inherited.Equal(entry))

	state, ok := u.Canonical("java.lang.Thread.State")
	require.True(t, ok)
	info, _ := u.Resolve(state)
	assert.Equal(t, "java.lang.Enum", info.SuperType.ToDottedString())
	assert.Equal(t, "java.lang.Thread", info.OuterType.ToDottedString())
}

func TestPackageExists(t *testing.T) {
	u, err := Default()
	require.NoError(t, err)

	assert.True(t, u.PackageExists(name.PackageNamed("java")))
	assert.True(t, u.PackageExists(name.PackageNamed("java.util.function")))
	assert.False(t, u.PackageExists(name.PackageNamed("javax")))
	assert.False(t, u.PackageExists(name.DefaultPackage))

	var pkgs []string
	for _, p := range u.Packages() {
		pkgs = append(pkgs, p.ToDottedString())
	}
	assert.Equal(t, []string{"java.io", "java.lang", "java.util", "java.util.function"}, pkgs)
}

func TestResolve_ConcurrentCallersShareOneRecord(t *testing.T) {
	u, err := Load(defaultCatalog)
	require.NoError(t, err)
	list := name.PackageNamed("java.util").MustChild("ArrayList", name.Class)

	const n = 32
	got := make([]*resolver.TypeInfo, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = u.Resolve(list)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, got[0], got[i])
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]byte("packages:\n  - name: a\n    types:\n      - name: X\n        extends: a.Missing\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown superclass")

	_, err = Load([]byte("packages:\n  - name: a\n    types:\n      - name: X\n      - name: X\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")

	_, err = Load([]byte("packages: [: bad"))
	require.Error(t, err)
}

func TestLoadFiles_ExtendsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
packages:
  - name: org.acme
    types:
      - name: Widget
        extends: java.lang.Number
        interfaces: [java.io.Serializable]
`), 0o644))

	u, err := LoadFiles(path)
	require.NoError(t, err)
	w, ok := u.Canonical("org.acme.Widget")
	require.True(t, ok)
	info, ok := u.Resolve(w)
	require.True(t, ok)
	assert.Equal(t, "java.lang.Number", info.SuperType.ToDottedString())
	assert.True(t, u.PackageExists(name.PackageNamed("org")))
}
