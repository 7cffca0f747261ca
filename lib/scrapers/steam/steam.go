// Package steam resolves player identities (display name, avatar, color)
// from steam community profile pages. Resolution failures are never fatal:
// callers always get a usable placeholder profile back.
package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"time"

	"ruststats-backend/lib/htmlutil"
	"ruststats-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/steam")

const FallbackAvatarUrl = "https://steamcommunity-a.akamaihd.net/public/images/avatars/fe/fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb_full.jpg"

// player accent colors handed out when steam gives us nothing to go on
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#008080",
}

type Profile struct {
	SteamId     string `json:"steamId,omitempty"`
	SteamUrl    string `json:"steamUrl,omitempty"`
	DisplayName string `json:"displayName"`
	AvatarUrl   string `json:"avatarUrl"`
	Color       string `json:"color"`
}

type Client struct {
	http *resty.Client
}

func NewClient() (*Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/steam/http")

	return &Client{http: client}, nil
}

var steamIdRegex = regexp.MustCompile(`^[0-9]{17}$`)
var profileDataRegex = regexp.MustCompile(`(?m)g_rgProfileData *= *(.+?);\s*$`)

func profileUrl(idOrUrl string) string {
	if steamIdRegex.MatchString(idOrUrl) {
		return fmt.Sprintf("https://steamcommunity.com/profiles/%s", idOrUrl)
	}
	return idOrUrl
}

// ColorFor deterministically picks an accent color for an identity key so a
// player keeps their color across scrapes. An empty key gets a random pick.
func ColorFor(key string) string {
	if key == "" {
		i, err := random.IntRange(0, len(palette))
		if err != nil {
			return palette[0]
		}
		return palette[i]
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return palette[int(h.Sum32())%len(palette)]
}

// Placeholder builds the identity used when resolution fails or has not
// happened yet: the display name falls back to whatever identity key is
// available.
func Placeholder(idOrUrl string) Profile {
	name := idOrUrl
	if name == "" {
		name = "unknown player"
	}
	p := Profile{
		DisplayName: name,
		AvatarUrl:   FallbackAvatarUrl,
		Color:       ColorFor(idOrUrl),
	}
	if steamIdRegex.MatchString(idOrUrl) {
		p.SteamId = idOrUrl
	} else if idOrUrl != "" {
		p.SteamUrl = idOrUrl
	}
	return p
}

// ResolveProfile fetches a steam community profile page and extracts the
// display name, avatar and numeric id. Any failure falls back to a
// placeholder profile, the error is reported through the span only.
func (c *Client) ResolveProfile(ctx context.Context, idOrUrl string) Profile {
	ctx, span := tracer.Start(ctx, "ResolveProfile")
	defer span.End()

	link := profileUrl(idOrUrl)

	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile fetch failed")
		return Placeholder(idOrUrl)
	}
	if res.StatusCode() >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("profile fetch returned %d", res.StatusCode()))
		return Placeholder(idOrUrl)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile parse failed")
		return Placeholder(idOrUrl)
	}

	return c.profileFromDocument(doc, idOrUrl, link)
}

func (c *Client) profileFromDocument(doc *goquery.Document, idOrUrl, link string) Profile {
	profile := Placeholder(idOrUrl)
	profile.SteamUrl = link

	nameSel := doc.Find(".actual_persona_name").First()
	if len(nameSel.Nodes) > 0 {
		name := htmlutil.CleanText(htmlutil.GetText(nameSel.Nodes[0]))
		if name != "" {
			profile.DisplayName = name
		}
	}

	avatar := doc.Find(".playerAvatarAutoSizeInner img").First().AttrOr("src", "")
	if avatar != "" {
		profile.AvatarUrl = avatar
	}

	if steamId := steamIdFromScripts(doc); steamId != "" {
		profile.SteamId = steamId
		profile.Color = ColorFor(steamId)
	}

	return profile
}

// steam embeds a g_rgProfileData blob carrying the canonical numeric id,
// which is more reliable than parsing it back out of the url
func steamIdFromScripts(doc *goquery.Document) string {
	var steamId string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, "g_rgProfileData") {
			return true
		}
		groups := profileDataRegex.FindStringSubmatch(text)
		if len(groups) < 2 {
			return true
		}
		var data struct {
			SteamId string `json:"steamid"`
		}
		if err := json.Unmarshal([]byte(groups[1]), &data); err != nil {
			return true
		}
		steamId = data.SteamId
		return false
	})
	return steamId
}
