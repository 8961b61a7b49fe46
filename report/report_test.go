package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/values"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	name := values.MustNewName("x")
	assert.Equal(t, SeverityRecoverable, Classify(&entities.UpdateDeclinedError{Name: name}))
	assert.Equal(t, SeverityFatal, Classify(&entities.NotFoundError{Name: name}))
	assert.Equal(t, SeverityFatal, Classify(&entities.IncompatibleError{Name: name}))
	assert.Equal(t, SeverityFatal, Classify(errors.New("load blew up")))
}

func TestCollectorEmpty(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	assert.True(t, c.Empty())
	assert.Empty(t, c.RenderHTML())
}

func TestCollectorGroupsByTag(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Recoverable("news", errors.New("registry unreachable"))
	c.Fatal("weather", errors.New("gate rejected"))
	c.Recoverable("news", errors.New("stale content used"))

	tags, grouped := c.ByTag()
	assert.Equal(t, []string{"news", "weather"}, tags)
	assert.Len(t, grouped["news"], 2)
	assert.Len(t, grouped["weather"], 1)
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Fatal("<headlines>", errors.New("handler not found: ghost"))

	out := c.RenderHTML()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "inlay-report")
	assert.Contains(t, out, "&lt;headlines&gt;", "tags are escaped")
	assert.Contains(t, out, "[fatal] handler not found: ghost")
	assert.Contains(t, out, "1 problem(s)")
}
