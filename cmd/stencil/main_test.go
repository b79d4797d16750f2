package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil"
	"github.com/benjaminschreck/go-stencil-odt/pkg/stencil/container"
)

func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readContent(t *testing.T, path string) string {
	t.Helper()
	pkg, err := container.OpenFile(path)
	require.NoError(t, err)
	content, err := pkg.ReadPart(container.ContentPart)
	require.NoError(t, err)
	return string(content)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Equal(t, "stencil version "+version+"\n", out)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "letter.odt", stencil.NewTestODT(
		`<text:p>Dear {{ customer.name }},</text:p><text:p>{% for i in items %}</text:p><text:p>{{ i }}</text:p><text:p>{% endfor %}</text:p>`))

	tests := []struct {
		name string
		file string
		data string
	}{
		{name: "yaml", file: "data.yaml", data: "customer:\n  name: Alice\nitems: [one, two]\n"},
		{name: "json", file: "data.json", data: `{"customer": {"name": "Alice"}, "items": ["one", "two"]}`},
		{name: "toml", file: "data.toml", data: "items = [\"one\", \"two\"]\n\n[customer]\nname = \"Alice\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := writeFile(t, dir, tt.file, []byte(tt.data))
			output := filepath.Join(dir, tt.name+".odt")

			out, err := execute(t, nil, "render", tmpl, data, "-o", output)
			require.NoError(t, err)
			assert.Contains(t, out, "wrote "+output)

			content := readContent(t, output)
			assert.Contains(t, content, "Dear Alice,")
			assert.Contains(t, content, "<text:p>one</text:p><text:p>two</text:p>")
		})
	}
}

func TestRenderStdinAndDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "note.odt", stencil.NewTestODT(`<text:p>{{ greeting }}</text:p>`))

	_, err := execute(t, strings.NewReader("greeting: hi there\n"), "render", tmpl, "-")
	require.NoError(t, err)
	assert.Contains(t, readContent(t, filepath.Join(dir, "note.out.odt")), "<text:p>hi there</text:p>")
}

func TestRenderJinjaEngine(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "t.odt", stencil.NewTestODT(`<text:p>{{ name | upper }}</text:p>`))
	data := writeFile(t, dir, "d.yaml", []byte("name: bob\n"))
	output := filepath.Join(dir, "out.odt")

	_, err := execute(t, nil, "--engine", "jinja", "render", tmpl, data, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, readContent(t, output), "<text:p>BOB</text:p>")
}

func TestRenderFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "t.odt", stencil.NewTestODT(`<text:p>{{ format_currency(amount) }}</text:p>`))
	data := writeFile(t, dir, "d.yaml", []byte("amount: lots\n"))
	output := filepath.Join(dir, "out.odt")

	_, err := execute(t, nil, "render", tmpl, data, "-o", output)
	require.Error(t, err)
	assert.True(t, stencil.IsTemplateEvaluationError(err))
	assert.NoFileExists(t, output)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".stencil-"), "temporary file %s left behind", e.Name())
	}
}

func TestRenderMalformedTagWritesNothing(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "t.odt", stencil.NewTestODT(`<text:p>Dear {{ name</text:p>`))
	data := writeFile(t, dir, "d.yaml", []byte("name: Alice\n"))
	output := filepath.Join(dir, "out.odt")

	_, err := execute(t, nil, "render", tmpl, data, "-o", output)
	require.Error(t, err)
	assert.True(t, stencil.IsMalformedTagError(err))
	assert.NoFileExists(t, output)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRenderArgs(t *testing.T) {
	_, err := execute(t, nil, "render", "only-template.odt")
	assert.Error(t, err)

	_, err = execute(t, nil, "--engine", "mustache", "render", "a.odt", "b.yaml")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "t.odt", stencil.NewTestODT(
		`<text:p>{{ fir<text:span>st }}</text:span></text:p>`,
		stencil.WithTestHeader(`<text:p>{{ title }}</text:p>`)))

	out, err := execute(t, nil, "inspect", tmpl)
	require.NoError(t, err)
	assert.Equal(t, "content.xml (1 tags)\n  {{ first }}\nstyles.xml (1 tags)\n  {{ title }}\n", out)

	out, err = execute(t, nil, "inspect", tmpl, "--part", "content.xml")
	require.NoError(t, err)
	assert.Contains(t, out, "<text:p>{{ first }}</text:p>")

	out, err = execute(t, nil, "inspect", tmpl, "--diff")
	require.NoError(t, err)
	assert.Contains(t, out, "+<text:p>{{ first }}</text:p>")

	_, err = execute(t, nil, "inspect", tmpl, "--part", "meta.xml")
	assert.ErrorIs(t, err, container.ErrPartNotFound)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.odt", stencil.NewTestODT(`<text:p>{% if x %}{{ name|upper }}{% endif %}</text:p>`))
	bad := writeFile(t, dir, "bad.odt", stencil.NewTestODT(`<text:p>{% for x in xs %}</text:p>`))

	out, err := execute(t, nil, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "good.odt: ok")

	out, err = execute(t, nil, "validate", bad)
	require.Error(t, err)
	assert.True(t, stencil.IsValidationError(err))
	assert.Contains(t, err.Error(), "template="+bad)
	assert.Contains(t, out, bad+": content.xml:")
	assert.Contains(t, out, "{% for x in xs %}")

	out, err = execute(t, nil, "validate", "--refs", good)
	require.NoError(t, err)
	assert.Contains(t, out, "variable x")
	assert.Contains(t, out, "filter   upper")
}

func TestValidateSeveralTemplates(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.odt", stencil.NewTestODT(`<text:p>{{ name }}</text:p>`))
	loop := writeFile(t, dir, "loop.odt", stencil.NewTestODT(`<text:p>{% for x in xs %}</text:p>`))
	cond := writeFile(t, dir, "cond.odt", stencil.NewTestODT(`<text:p>{% endif %}</text:p>`))

	out, err := execute(t, nil, "validate", good, loop, cond)
	require.Error(t, err)
	assert.Contains(t, out, good+": ok")

	var multi *stencil.MultiError
	require.ErrorAs(t, err, &multi)
	assert.Equal(t, 2, multi.Len())
	assert.Contains(t, err.Error(), "template="+loop)
	assert.Contains(t, err.Error(), "template="+cond)
	assert.True(t, stencil.IsValidationError(err))

	_, err = execute(t, nil, "validate", good, filepath.Join(dir, "missing.odt"))
	require.Error(t, err)
	assert.False(t, stencil.IsValidationError(err))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "stencil.toml", []byte("engine = \"jinja\"\n"))
	tmpl := writeFile(t, dir, "t.odt", stencil.NewTestODT(`<text:p>{{ "a" ~ "b" }}</text:p>`))
	data := writeFile(t, dir, "d.yaml", []byte("{}\n"))
	output := filepath.Join(dir, "out.odt")

	_, err := execute(t, nil, "--config", config, "render", tmpl, data, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, readContent(t, output), "<text:p>ab</text:p>")

	broken := writeFile(t, dir, "broken.yaml", []byte("no_such_option: 1\n"))
	_, err = execute(t, nil, "--config", broken, "version")
	assert.Error(t, err)
}

func TestLoadData(t *testing.T) {
	dir := t.TempDir()

	data, err := loadData(writeFile(t, dir, "d.yml", []byte("n: 3\nlist: [a, b]\n")), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, data["n"])
	assert.Equal(t, []interface{}{"a", "b"}, data["list"])

	data, err = loadData(writeFile(t, dir, "d.toml", []byte("n = 3\n")), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, data["n"])

	_, err = loadData(writeFile(t, dir, "bad.json", []byte("{")), nil)
	assert.Error(t, err)

	_, err = loadData(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)
}
