package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRegistry() *Registry {
	r := NewRegistry("http://localhost", &Source{
		APIURL:     "http://localhost/w/api.php",
		ContentURL: "http://localhost/wiki/$1",
	})
	r.Add(&Source{
		Title:      "Remote",
		APIURL:     "http://remote.org/w/api.php",
		ContentURL: "http://remote.org/w/index.php/$1",
		Searchable: true,
	})
	r.Add(&Source{
		Title:      "Archive",
		ContentURL: "http://archive.org/pages/$1",
	})
	return r
}

func TestRegistry_Local(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, LocalTitle, r.Local().Title)
	assert.True(t, r.Local().Searchable)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 1, r.IndexByTitle("Remote"))
	assert.Equal(t, -1, r.IndexByTitle("Nope"))
	assert.Nil(t, r.At(7))
	assert.Len(t, r.Searchable(), 2)
	assert.True(t, r.SameServer(r.Local()))
	assert.False(t, r.SameServer(r.At(1)))
}

func TestRegistry_Classify(t *testing.T) {
	r := testRegistry()
	tests := []struct {
		url       string
		wantIndex int
		wantURL   string
	}{
		{"http://localhost/wiki/Main_Page", 0, "http://localhost/wiki/Main_Page"},
		{"http://remote.org/w/index.php/Foo", 1, "http://remote.org/w/index.php/Foo"},
		{"http://remote.org/w/index.php?title=Foo", 1, "http://remote.org/w/index.php/Foo"},
		{"http://archive.org/pages/X", 2, "http://archive.org/pages/X"},
		{"https://example.com/", -1, "https://example.com/"},
	}
	for _, tt := range tests {
		idx, canonical := r.Classify(tt.url)
		assert.Equal(t, tt.wantIndex, idx, tt.url)
		assert.Equal(t, tt.wantURL, canonical, tt.url)
	}
}

func TestSource_URLs(t *testing.T) {
	s := &Source{ContentURL: "http://localhost/wiki/$1"}
	assert.Equal(t, "http://localhost/wiki/Hello_World", s.PageURL("Hello World"))
	assert.Equal(t, "Hello World", s.TitleFromURL("http://localhost/wiki/Hello_World"))
}

func TestSource_ContentNamespaces(t *testing.T) {
	s := &Source{}
	assert.True(t, s.IsContentNamespace(0))
	assert.False(t, s.IsContentNamespace(4))

	s.ContentNamespaces = []int{0, 4}
	assert.True(t, s.IsContentNamespace(4))
	assert.False(t, s.IsContentNamespace(14))
}

func TestTitleKey(t *testing.T) {
	assert.Equal(t, "apple", TitleKey("Apple"))
	assert.Equal(t, "Help:contents", TitleKey("Help:Contents"))
	assert.Equal(t, "Help:", TitleKey("Help:"))
	assert.Equal(t, "", TitleKey(""))
	assert.True(t, SameTitle("Help:Contents", "Help:contents"))
	assert.False(t, SameTitle("Help:Contents", "help:Contents"))
	assert.Equal(t, "Draft", StripCategory("Category:Draft"))
}
