package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0644))
	}
	return fs
}

func read(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	return string(data)
}

func TestSources(t *testing.T) {
	fs := newFs(t, map[string]string{
		"src/plugins/a/a.php":      "a",
		"src/plugins/README.md":    "readme",
		"src/plugins/b/notes.md":   "notes",
		"src/plugins/b/b.php":      "b",
		"node_modules/x/dist/x.js": "x",
	})
	p := New(fs, nil)

	files, err := p.Sources("src/plugins/**", "!src/plugins/README.md")
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.Rel)
	}
	assert.Equal(t, []string{"a/a.php", "b/b.php", "b/notes.md"}, rels)

	files, err = p.Sources("./node_modules/x/dist/x.js")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "x.js", files[0].Rel)

	files, err = p.Sources("missing/**")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCopyMirrorsTree(t *testing.T) {
	fs := newFs(t, map[string]string{
		"src/theme/index.php":                 "<?php",
		"src/theme/parts/header.php":          "header",
		"src/theme/node_modules/pkg/index.js": "skip",
	})
	p := New(fs, nil)

	n, err := p.Copy(context.Background(), "dist/themes/wp", "src/theme/**", "!src/theme/**/node_modules/**")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "<?php", read(t, fs, "dist/themes/wp/index.php"))
	assert.Equal(t, "header", read(t, fs, "dist/themes/wp/parts/header.php"))
	exists, err := afero.Exists(fs, "dist/themes/wp/node_modules/pkg/index.js")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBundleConcatenatesInOrder(t *testing.T) {
	fs := newFs(t, map[string]string{
		"src/assets/js/b.js": "var b = 2;",
		"src/assets/js/a.js": "var a = 1;\n",
	})
	p := New(fs, nil)

	require.NoError(t, p.Bundle(context.Background(), "out/footer-bundle.js", false, "src/assets/js/**"))
	assert.Equal(t, "var a = 1;\nvar b = 2;\n", read(t, fs, "out/footer-bundle.js"))
}

func TestBundleMinifies(t *testing.T) {
	fs := newFs(t, map[string]string{
		"src/assets/js/a.js": "function add(first, second) {\n  return first + second;\n}\n",
	})
	p := New(fs, nil)

	require.NoError(t, p.Bundle(context.Background(), "out.js", true, "src/assets/js/**"))
	out := read(t, fs, "out.js")
	assert.NotContains(t, out, "\n  ")
	assert.Less(t, len(out), len("function add(first, second) {\n  return first + second;\n}\n"))
}

func TestBundleWithoutSourcesWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, nil)

	require.NoError(t, p.Bundle(context.Background(), "out.js", false, "node_modules/jquery/dist/jquery.js"))
	exists, err := afero.Exists(fs, "out.js")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStylesInlinesImports(t *testing.T) {
	fs := newFs(t, map[string]string{
		"src/assets/css/style.css":      "@import \"base/reset.css\";\n@import url(\"https://fonts.example/x.css\");\nbody { color: red; }\n",
		"src/assets/css/base/reset.css": "@import 'vars';\n* { margin: 0; }\n",
		"src/assets/css/base/vars.css":  ":root { --gap: 1rem; }\n",
	})
	p := New(fs, nil)

	require.NoError(t, p.Styles(context.Background(), "src/assets/css/style.css", "build/style.css", false))
	out := read(t, fs, "build/style.css")

	assert.Contains(t, out, ":root { --gap: 1rem; }")
	assert.Contains(t, out, "* { margin: 0; }")
	assert.Contains(t, out, "https://fonts.example/x.css")
	assert.NotContains(t, out, "reset.css")
	assert.Less(t, strings.Index(out, "--gap"), strings.Index(out, "margin"))
}

func TestStylesMinify(t *testing.T) {
	fs := newFs(t, map[string]string{
		"style.css": "body {\n  color: #ff0000;\n}\n",
	})
	p := New(fs, nil)

	require.NoError(t, p.Styles(context.Background(), "style.css", "out.css", true))
	assert.Equal(t, "body{color:red}", read(t, fs, "out.css"))
}

func TestStylesErrorsArePipelineErrors(t *testing.T) {
	testCases := []struct {
		name  string
		files map[string]string
		code  string
	}{
		{"missing entry", map[string]string{}, "STYLES_READ_FAILED"},
		{"missing import", map[string]string{"style.css": "@import \"nope.css\";"}, "IMPORT_NOT_FOUND"},
		{"cycle", map[string]string{"style.css": "@import \"a.css\";", "a.css": "@import \"style.css\";"}, "IMPORT_CYCLE"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(newFs(t, tc.files), nil)

			err := p.Styles(context.Background(), "style.css", "out.css", false)
			require.Error(t, err)
			assert.True(t, errors.IsRecoverable(err))
			assert.Contains(t, err.Error(), tc.code)
		})
	}
}

func TestImagesOptimizeSVG(t *testing.T) {
	svg := "<svg xmlns=\"http://www.w3.org/2000/svg\">\n  <!-- comment -->\n  <rect width=\"10\" height=\"10\"/>\n</svg>\n"
	fs := newFs(t, map[string]string{
		"src/assets/img/logo.svg":    svg,
		"src/assets/img/photo/a.png": "\x89PNG",
	})
	p := New(fs, nil)

	n, err := p.Images(context.Background(), "dist/img", true, "src/assets/img/**")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := read(t, fs, "dist/img/logo.svg")
	assert.NotContains(t, out, "comment")
	assert.Less(t, len(out), len(svg))
	assert.Equal(t, "\x89PNG", read(t, fs, "dist/img/photo/a.png"))
}

func TestImagesDevCopies(t *testing.T) {
	svg := "<svg>\n</svg>\n"
	fs := newFs(t, map[string]string{"src/assets/img/logo.svg": svg})
	p := New(fs, nil)

	_, err := p.Images(context.Background(), "build/img", false, "src/assets/img/**")
	require.NoError(t, err)
	assert.Equal(t, svg, read(t, fs, "build/img/logo.svg"))
}

func TestClean(t *testing.T) {
	fs := newFs(t, map[string]string{"dist/themes/wp/style.css": "x"})
	p := New(fs, nil)

	require.NoError(t, p.Clean(context.Background(), "dist"))
	require.NoError(t, p.Clean(context.Background(), "dist"))
	exists, err := afero.Exists(fs, "dist")
	require.NoError(t, err)
	assert.False(t, exists)
}
