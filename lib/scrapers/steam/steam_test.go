package steam

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const profilePage = `
<html><head>
<script type="text/javascript">
	g_rgProfileData = {"url":"https:\/\/steamcommunity.com\/id\/coastalraider\/","steamid":"76561198000000001","personaname":"coastal raider"};
</script>
</head><body>
<div class="playerAvatarAutoSizeInner"><img src="https://avatars.example/full.jpg"></div>
<span class="actual_persona_name">coastal  raider</span>
</body></html>`

func TestProfileFromDocument(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(profilePage))
	require.NoError(t, err)

	c := &Client{}
	profile := c.profileFromDocument(doc, "coastalraider", "https://steamcommunity.com/id/coastalraider/")

	require.Equal(t, "coastal raider", profile.DisplayName)
	require.Equal(t, "https://avatars.example/full.jpg", profile.AvatarUrl)
	require.Equal(t, "76561198000000001", profile.SteamId)
	require.Equal(t, "https://steamcommunity.com/id/coastalraider/", profile.SteamUrl)
	require.NotEmpty(t, profile.Color)
}

func TestPlaceholderFallsBackToIdentity(t *testing.T) {
	p := Placeholder("76561198000000001")
	require.Equal(t, "76561198000000001", p.DisplayName)
	require.Equal(t, "76561198000000001", p.SteamId)
	require.Empty(t, p.SteamUrl)
	require.Equal(t, FallbackAvatarUrl, p.AvatarUrl)

	p = Placeholder("https://steamcommunity.com/id/x/")
	require.Equal(t, "https://steamcommunity.com/id/x/", p.SteamUrl)
	require.Empty(t, p.SteamId)

	p = Placeholder("")
	require.Equal(t, "unknown player", p.DisplayName)
}

func TestColorIsStable(t *testing.T) {
	require.Equal(t, ColorFor("76561198000000001"), ColorFor("76561198000000001"))
	require.NotEmpty(t, ColorFor(""))
}

func TestProfileUrl(t *testing.T) {
	require.Equal(t,
		"https://steamcommunity.com/profiles/76561198000000001",
		profileUrl("76561198000000001"),
	)
	require.Equal(t,
		"https://steamcommunity.com/id/coastalraider/",
		profileUrl("https://steamcommunity.com/id/coastalraider/"),
	)
}
