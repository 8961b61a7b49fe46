package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inlay-dev/inlay-core/datakind"
	"github.com/inlay-dev/inlay-core/handler/entities"
)

const sampleDefinition = `# inlay-handler v1
name: slashdot
kind: acquisition
version: "1.5"
protocol: "1.0"
engine: http-get
produces: array
update_times:
  - "2,5,8,11,14,17,20,23"
params:
  url: "https://slashdot.example/headlines"
`

func TestSniff(t *testing.T) {
	t.Parallel()

	assert.True(t, Sniff([]byte(sampleDefinition)))
	assert.True(t, Sniff([]byte("\n\n  \n# inlay-handler v1\nname: x\n")), "leading blank lines are fine")
	assert.False(t, Sniff([]byte("name: x\nkind: filter\n")), "missing marker")
	assert.False(t, Sniff([]byte("<html><body>registry error page</body></html>")))
	assert.False(t, Sniff(nil))
}

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(sampleDefinition))
	require.NoError(t, err)

	assert.Equal(t, "slashdot", m.Name().String())
	assert.Equal(t, entities.KindAcquisition, m.Kind())
	assert.Equal(t, "1.5", m.Version().String())
	assert.Equal(t, "1.0", m.Protocol().String())
	assert.Equal(t, "http-get", m.Engine())
	assert.Equal(t, datakind.Array, m.Produces())
	assert.Equal(t, []string{"2,5,8,11,14,17,20,23"}, m.UpdateTimes())
	assert.Equal(t, "https://slashdot.example/headlines", m.Params()["url"])
}

func TestParseRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"missing marker", "name: x\nkind: filter\nversion: \"1.0\"\nprotocol: \"1.0\"\nengine: grep\n"},
		{"missing required field", Magic + "\nname: x\nkind: filter\n"},
		{"bad kind", Magic + "\nname: x\nkind: widget\nversion: \"1.0\"\nprotocol: \"1.0\"\nengine: grep\n"},
		{"bad version", Magic + "\nname: x\nkind: filter\nversion: \"banana\"\nprotocol: \"1.0\"\nengine: grep\n"},
		{"bad name", Magic + "\nname: \"a/b\"\nkind: filter\nversion: \"1.0\"\nprotocol: \"1.0\"\nengine: grep\n"},
		{"bad produces", Magic + "\nname: x\nkind: filter\nversion: \"1.0\"\nprotocol: \"1.0\"\nengine: grep\nproduces: blob\n"},
		{"not yaml", Magic + "\n\t{{{{"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			require.Error(t, err)
		})
	}
}

func TestRenderRoundTrip(t *testing.T) {
	t.Parallel()

	data := Render("cnn", "acquisition", "2.1", "1.0", "http-get", "html",
		[]string{"mon 8,20"}, map[string]any{"url": "https://cnn.example/top"})

	require.True(t, Sniff(data))
	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "cnn", m.Name().String())
	assert.Equal(t, "2.1", m.Version().String())
	assert.Equal(t, datakind.HTML, m.Produces())
	assert.Equal(t, "https://cnn.example/top", m.Params()["url"])
}
