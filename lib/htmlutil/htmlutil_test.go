package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<div>
			<a class="x" href="/activity/12">  Morning
				Run </a>
			<a class="x">no href</a>
			<a class="x" href="https://other.example/activity/13">Ride</a>
		</div>`))
	require.NoError(t, err)

	base, err := url.Parse("https://connect.example/minactivities")
	require.NoError(t, err)

	anchors := GetAnchors(base, doc.Find("a.x"))
	require.Len(t, anchors, 2)
	require.Equal(t, "Morning Run", anchors[0].Name)
	require.Equal(t, "/activity/12", anchors[0].Href)
	require.Equal(t, "https://connect.example/activity/12", anchors[0].Url.String())
	require.Equal(t, "https://other.example/activity/13", anchors[1].Url.String())
}

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "a b", NormalizeText("\n\t a \n\n  b\x00 "))
}
