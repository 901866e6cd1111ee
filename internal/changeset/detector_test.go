package changeset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relPaths(changed []domain.ChangedFile) []string {
	var out []string
	for _, c := range changed {
		out = append(out, filepath.ToSlash(c.RelPath))
	}
	return out
}

func TestDetectReportsOnlyChangedCommonFiles(t *testing.T) {
	pre, post := t.TempDir(), t.TempDir()
	writeTree(t, pre, map[string]string{"x.py": "A", "y.py": "B"})
	writeTree(t, post, map[string]string{"x.py": "A", "y.py": "C", "z.py": "new"})

	d := &Detector{Extension: ".py"}
	changed, err := d.Detect(pre, post)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.ChangedFile{
		RelPath:     "y.py",
		PreFixPath:  filepath.Join(pre, "y.py"),
		PostFixPath: filepath.Join(post, "y.py"),
	}, changed[0])
}

func TestDetectAsymmetricExistence(t *testing.T) {
	pre, post := t.TempDir(), t.TempDir()
	writeTree(t, pre, map[string]string{"src/Only.java": "pre"})
	writeTree(t, post, map[string]string{"src/Other.java": "post"})

	changed, err := (&Detector{Extension: ".java"}).Detect(pre, post)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestDetectNestedAndFiltered(t *testing.T) {
	pre, post := t.TempDir(), t.TempDir()
	writeTree(t, pre, map[string]string{
		"src/main/java/a/A.java": "class A {}",
		"src/main/java/a/B.java": "class B {}",
		"build.xml":              "<old/>",
		"src/main/java/a/C.java": "same",
	})
	writeTree(t, post, map[string]string{
		"src/main/java/a/A.java": "class A { int x; }",
		"src/main/java/a/B.java": "class B {}",
		"build.xml":              "<new/>",
		"src/main/java/a/C.java": "same",
	})

	changed, err := (&Detector{Extension: ".java"}).Detect(pre, post)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main/java/a/A.java"}, relPaths(changed))

	changed, err = (&Detector{}).Detect(pre, post)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"build.xml", "src/main/java/a/A.java"}, relPaths(changed))
}

func TestDetectNoCandidates(t *testing.T) {
	changed, err := (&Detector{Extension: ".py"}).Detect(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestDetectSameSizeDifferentContent(t *testing.T) {
	pre, post := t.TempDir(), t.TempDir()
	big := make([]byte, 3*compareChunk+17)
	for i := range big {
		big[i] = byte(i % 251)
	}
	other := append([]byte(nil), big...)
	other[len(other)-1] ^= 0xff
	require.NoError(t, os.WriteFile(filepath.Join(pre, "big.py"), big, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(post, "big.py"), other, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pre, "copy.py"), big, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(post, "copy.py"), big, 0o644))

	changed, err := (&Detector{Extension: ".py"}).Detect(pre, post)
	require.NoError(t, err)
	assert.Equal(t, []string{"big.py"}, relPaths(changed))
}

func TestDetectMissingPreRoot(t *testing.T) {
	_, err := (&Detector{}).Detect(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	require.Error(t, err)
}

func TestDetectSkipsUnreadableCandidate(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	pre, post := t.TempDir(), t.TempDir()
	writeTree(t, pre, map[string]string{"a.py": "1", "b.py": "2"})
	writeTree(t, post, map[string]string{"a.py": "x", "b.py": "y"})
	require.NoError(t, os.Chmod(filepath.Join(pre, "a.py"), 0o000))

	var failed []string
	d := &Detector{Extension: ".py", OnError: func(rel string, err error) {
		failed = append(failed, rel)
	}}
	changed, err := d.Detect(pre, post)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.py"}, relPaths(changed))
	assert.Equal(t, []string{"a.py"}, failed)

	_, err = (&Detector{Extension: ".py"}).Detect(pre, post)
	assert.Error(t, err)
}

func TestSameContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(c, []byte("hellO"), 0o644))

	same, err := SameContent(a, b)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = SameContent(a, c)
	require.NoError(t, err)
	assert.False(t, same)

	_, err = SameContent(a, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDetectReportsUnreadableDirRelative(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	pre, post := t.TempDir(), t.TempDir()
	writeTree(t, pre, map[string]string{"pkg/sub/a.py": "1", "b.py": "2"})
	writeTree(t, post, map[string]string{"pkg/sub/a.py": "x", "b.py": "y"})
	sub := filepath.Join(pre, "pkg", "sub")
	require.NoError(t, os.Chmod(sub, 0o000))
	t.Cleanup(func() { os.Chmod(sub, 0o755) })

	var failed []string
	d := &Detector{Extension: ".py", OnError: func(rel string, err error) {
		failed = append(failed, filepath.ToSlash(rel))
	}}
	changed, err := d.Detect(pre, post)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.py"}, relPaths(changed))
	assert.Equal(t, []string{"pkg/sub"}, failed)
}

func TestFailAtPassesRelativePath(t *testing.T) {
	root := t.TempDir()
	var got string
	d := &Detector{OnError: func(rel string, err error) { got = rel }}

	require.NoError(t, d.failAt(root, filepath.Join(root, "pkg", "sub"), os.ErrPermission))
	assert.Equal(t, filepath.Join("pkg", "sub"), got)

	err := (&Detector{}).failAt(root, filepath.Join(root, "x"), os.ErrPermission)
	assert.ErrorIs(t, err, os.ErrPermission)
}
