package gitcollect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest_PackageJSON(t *testing.T) {
	data := []byte(`{
  "name": "app",
  "dependencies": {"react": "^18.2.0", "axios": "1.6.0"},
  "devDependencies": {"jest": "^29.0.0"}
}`)

	m, err := ParseManifest("package.json", data)
	require.NoError(t, err)
	assert.Equal(t, "npm", m.Ecosystem)
	assert.Equal(t, "^18.2.0", m.Dependencies["react"])
	assert.Equal(t, "^29.0.0", m.DevDependencies["jest"])
}

func TestParseManifest_CargoTOML(t *testing.T) {
	data := []byte(`
[package]
name = "svc"

[dependencies]
serde = "1.0"
tokio = { version = "1.38", features = ["full"] }

[dev-dependencies]
criterion = "0.5"
`)

	m, err := ParseManifest("Cargo.toml", data)
	require.NoError(t, err)
	assert.Equal(t, "cargo", m.Ecosystem)
	assert.Equal(t, "1.0", m.Dependencies["serde"])
	assert.Equal(t, "1.38", m.Dependencies["tokio"])
	assert.Equal(t, "0.5", m.DevDependencies["criterion"])
}

func TestParseManifest_PyprojectPEP621(t *testing.T) {
	data := []byte(`
[project]
name = "svc"
dependencies = ["requests>=2.31", "flask==3.0.0", "rich"]
`)

	m, err := ParseManifest("pyproject.toml", data)
	require.NoError(t, err)
	assert.Equal(t, "python", m.Ecosystem)
	assert.Equal(t, ">=2.31", m.Dependencies["requests"])
	assert.Equal(t, "==3.0.0", m.Dependencies["flask"])
	assert.Equal(t, "", m.Dependencies["rich"])
}

func TestParseManifest_PyprojectPoetry(t *testing.T) {
	data := []byte(`
[tool.poetry.dependencies]
python = "^3.11"
django = "^5.0"

[tool.poetry.dev-dependencies]
pytest = "^8.0"
`)

	m, err := ParseManifest("pyproject.toml", data)
	require.NoError(t, err)
	assert.Equal(t, "^5.0", m.Dependencies["django"])
	assert.NotContains(t, m.Dependencies, "python")
	assert.Equal(t, "^8.0", m.DevDependencies["pytest"])
}

func TestParseManifest_Malformed(t *testing.T) {
	_, err := ParseManifest("package.json", []byte("{not json"))
	assert.Error(t, err)

	_, err = ParseManifest("Cargo.toml", []byte("[unclosed"))
	assert.Error(t, err)

	_, err = ParseManifest("requirements.txt", []byte(""))
	assert.Error(t, err)
}

func TestSplitRequirement(t *testing.T) {
	cases := []struct{ in, name, ver string }{
		{"requests>=2.31", "requests", ">=2.31"},
		{"flask == 3.0.0", "flask", "== 3.0.0"},
		{"rich", "rich", ""},
		{"uvicorn[standard]>=0.27", "uvicorn", "[standard]>=0.27"},
	}
	for _, c := range cases {
		name, ver := splitRequirement(c.in)
		assert.Equal(t, c.name, name, c.in)
		assert.Equal(t, c.ver, ver, c.in)
	}
}
