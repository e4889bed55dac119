package fileset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetsmith/internal/logging"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func rels(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.ToSlash(f.Rel)
	}
	return out
}

func TestGlobRootExcludesHTMLIncludesDotfiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html":     "<p>",
		"404.html":       "<p>",
		".htaccess":      "x",
		"robots.txt":     "x",
		"favicon.ico":    "x",
		"css/main.scss":  "x",
		"js/vendor/a.js": "x",
	})

	files, err := Glob([]string{
		filepath.Join(root, "*"),
		"!" + filepath.Join(root, "*.html"),
	}, Options{Dot: true})
	require.NoError(t, err)

	assert.Equal(t, []string{".htaccess", "favicon.ico", "robots.txt"}, rels(files))
}

func TestGlobWithoutDotSkipsDotfiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".hidden":         "x",
		"visible.txt":     "x",
		".cache/data.txt": "x",
	})

	files, err := Glob([]string{filepath.Join(root, "**", "*")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.txt"}, rels(files))
}

func TestGlobRecursiveRelativeToBase(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"img/a.png":       "x",
		"img/svg/b.svg":   "x",
		"img/svg/c/d.svg": "x",
	})

	files, err := Glob([]string{
		filepath.Join(root, "img", "**", "*"),
		"!" + filepath.Join(root, "img", "svg", "**"),
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, rels(files))

	files, err = Glob([]string{filepath.Join(root, "img", "svg", "**", "*")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.svg", "c/d.svg"}, rels(files))
}

func TestGlobKeepsPatternOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"js/plugins.js": "p",
		"js/main.js":    "m",
	})

	files, err := Glob([]string{
		filepath.Join(root, "js", "plugins.js"),
		filepath.Join(root, "js", "main.js"),
		filepath.Join(root, "js", "*.js"),
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"plugins.js", "main.js"}, rels(files))
}

func TestGlobBase(t *testing.T) {
	assert.Equal(t, "src/img", GlobBase("src/img/**/*"))
	assert.Equal(t, "src", GlobBase("src/*.html"))
	assert.Equal(t, "src/js", GlobBase("src/js/main.js"))
	assert.Equal(t, ".", GlobBase("*.js"))
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("src/css/**/*.scss", "src/css/a/b.scss"))
	assert.False(t, Match("src/css/**/*.scss", "src/js/a.js"))
	assert.True(t, Match("src/img/svg/**/*", "src/img/svg/x.svg"))
}

func TestNewer(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.scss")
	dest := filepath.Join(dir, "a.css")

	require.NoError(t, os.WriteFile(src, []byte("a"), 0644))
	assert.True(t, Newer(src, dest), "missing dest is stale")

	require.NoError(t, os.WriteFile(dest, []byte("b"), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))
	assert.False(t, Newer(src, dest))
	assert.False(t, AnyNewer([]string{src}, dest))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))
	assert.True(t, Newer(src, dest))
	assert.True(t, AnyNewer([]string{src}, dest))

	assert.False(t, Newer(filepath.Join(dir, "missing"), dest))
}

func TestWriteFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c.txt")

	require.NoError(t, WriteFile(path, []byte("hello")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0644))

	require.NoError(t, CopyFile(src, filepath.Join(dir, "out", "in.txt")))
	data, err := os.ReadFile(filepath.Join(dir, "out", "in.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	assert.Error(t, CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "x")))
}

func TestSizeReport(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelInfo, Format: "json", Output: &buf})

	size := NewSize("html", true)
	size.Add("index.html", 1500)
	size.Add("404.html", 500)

	assert.Equal(t, int64(2000), size.Total())
	assert.Equal(t, int64(2), size.Count())

	size.Log(context.Background(), logger)
	out := buf.String()
	assert.Contains(t, out, "html index.html 1.5 kB")
	assert.Contains(t, out, "html all files 2.0 kB")
}
