package providers

import (
	"net/url"
	"strconv"
	"strings"
)

// RemoteIDPlaceholder marks where the remote id is substituted into EmbedURL.
const RemoteIDPlaceholder = "<%= remote_id %>"

// DefaultIframeHTML is used by the view when a local provider has no HTML template.
const DefaultIframeHTML = `<iframe style="width:100%;" height="320" frameborder="0" allowfullscreen></iframe>`

// DefaultSpecs returns the built-in provider catalogue in registration order.
func DefaultSpecs() []Spec {
	return []Spec{
		vimeoSpec(),
		youTubeSpec(),
		coubSpec(),
		imgurSpec(),
		twitchChannelSpec(),
		twitchVideoSpec(),
		codePenSpec(),
		instagramSpec(),
		pinterestSpec(),
		soundCloudSpec(),
		twitterSpec(),
		facebookSpec(),
		tikTokSpec(),
	}
}

func vimeoSpec() Spec {
	return Spec{
		Key:      "vimeo",
		Pattern:  `(?:https?://)?(?:www\.|player\.)?vimeo\.com/(?:video/|channels/[\w-]+/|groups/[\w-]+/videos/)?(\d+)(?:[/?#].*)?`,
		Strategy: StrategyLocalTemplate,
		EmbedURL: "https://player.vimeo.com/video/" + RemoteIDPlaceholder + "?title=0&byline=0",
		HTML:     `<iframe style="width:100%;" height="320" frameborder="0" allow="autoplay; fullscreen; picture-in-picture" allowfullscreen></iframe>`,
		Width:    580,
		Height:   320,
	}
}

func youTubeSpec() Spec {
	return Spec{
		Key:       "youtube",
		Pattern:   `(?:https?://)?(?:www\.|m\.)?(?:youtu\.be/|youtube\.com/(?:watch\?(?:.*&)?v=|embed/|v/|shorts/))([\w-]+)((?:[?&#].*)?)`,
		Strategy:  StrategyLocalTemplate,
		EmbedURL:  "https://www.youtube.com/embed/" + RemoteIDPlaceholder,
		HTML:      `<iframe style="width:100%;" height="320" frameborder="0" allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" allowfullscreen></iframe>`,
		Width:     580,
		Height:    320,
		ExtractID: youTubeID,
	}
}

// youTubeID keeps the video id and carries a start offset taken from the
// t or start query parameters ("90", "90s", "1m30s", "1h2m3s").
func youTubeID(captures []string) string {
	if len(captures) == 0 {
		return ""
	}
	id := captures[0]
	if len(captures) < 2 || captures[1] == "" {
		return id
	}

	query := strings.TrimLeft(captures[1], "?&#")
	values, err := url.ParseQuery(query)
	if err != nil {
		return id
	}
	raw := values.Get("t")
	if raw == "" {
		raw = values.Get("start")
	}
	if seconds := parseOffset(raw); seconds > 0 {
		return id + "?start=" + strconv.Itoa(seconds)
	}
	return id
}

// maxOffsetSeconds bounds start offsets; anything longer is treated as bogus.
const maxOffsetSeconds = 48 * 3600

func parseOffset(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 || n > maxOffsetSeconds {
			return 0
		}
		return n
	}

	total, digits := 0, ""
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			if len(digits) >= 6 {
				return 0
			}
			digits += string(r)
		case r == 'h' || r == 'm' || r == 's':
			n, err := strconv.Atoi(digits)
			if err != nil {
				return 0
			}
			switch r {
			case 'h':
				total += n * 3600
			case 'm':
				total += n * 60
			default:
				total += n
			}
			digits = ""
			if total > maxOffsetSeconds {
				return 0
			}
		default:
			return 0
		}
	}
	if digits != "" {
		return 0
	}
	return total
}

func coubSpec() Spec {
	return Spec{
		Key:      "coub",
		Pattern:  `https?://coub\.com/view/([^/?#&]+)(?:[?#].*)?`,
		Strategy: StrategyLocalTemplate,
		EmbedURL: "https://coub.com/embed/" + RemoteIDPlaceholder,
		Width:    580,
		Height:   320,
	}
}

func imgurSpec() Spec {
	return Spec{
		Key:      "imgur",
		Pattern:  `https?://(?:i\.)?imgur\.com/(?:gallery/|a/)?([a-zA-Z0-9]+)(?:\.gifv)?`,
		Strategy: StrategyLocalTemplate,
		EmbedURL: "https://imgur.com/" + RemoteIDPlaceholder + "/embed",
		HTML:     `<iframe allowfullscreen="true" scrolling="no" class="imgur-embed-iframe-pub" style="height: 500px; width: 100%; border: 1px solid #000"></iframe>`,
		Width:    540,
		Height:   500,
	}
}

func twitchChannelSpec() Spec {
	return Spec{
		Key:      "twitch-channel",
		Pattern:  `https?://(?:www\.)?twitch\.tv/([^/?&#]+)/?`,
		Strategy: StrategyLocalTemplate,
		EmbedURL: "https://player.twitch.tv/?channel=" + RemoteIDPlaceholder,
		Width:    600,
		Height:   366,
	}
}

func twitchVideoSpec() Spec {
	return Spec{
		Key:      "twitch-video",
		Pattern:  `https?://(?:www\.)?twitch\.tv/(?:[^/?&#]+/v|videos)/(\d+)`,
		Strategy: StrategyLocalTemplate,
		EmbedURL: "https://player.twitch.tv/?video=v" + RemoteIDPlaceholder,
		Width:    600,
		Height:   366,
	}
}

func codePenSpec() Spec {
	return Spec{
		Key:       "codepen",
		Pattern:   `https?://codepen\.io/([^/?&#]+)/pen/([^/?&#]+)/?(?:[?#].*)?`,
		Strategy:  StrategyLocalTemplate,
		EmbedURL:  "https://codepen.io/" + RemoteIDPlaceholder + "?height=300&theme-id=0&default-tab=css,result&embed-version=2",
		HTML:      `<iframe height="300" style="width: 100%;" scrolling="no" frameborder="no" allowtransparency="true" allowfullscreen="true"></iframe>`,
		Width:     600,
		Height:    300,
		ExtractID: func(captures []string) string {
			if len(captures) < 2 {
				return ""
			}
			return captures[0] + "/embed/" + captures[1]
		},
	}
}

func instagramSpec() Spec {
	return Spec{
		Key:      "instagram",
		Pattern:  `https?://(?:www\.)?instagram\.com/(?:p|reel)/([^/?#&]+)/?(?:[?#].*)?`,
		Strategy: StrategyLocalTemplate,
		EmbedURL: "https://www.instagram.com/p/" + RemoteIDPlaceholder + "/embed",
		HTML:     `<iframe width="400" height="505" style="margin: 0 auto;" frameborder="0" scrolling="no" allowtransparency="true"></iframe>`,
		Width:    400,
		Height:   505,
	}
}

func pinterestSpec() Spec {
	return Spec{
		Key:       "pinterest",
		Pattern:   `https?://([^/?#&]+)\.pinterest\.com/pin/([^/?#&]+)/?`,
		Strategy:  StrategyLocalTemplate,
		EmbedURL:  "https://assets.pinterest.com/ext/embed.html?id=" + RemoteIDPlaceholder,
		HTML:      `<iframe scrolling="no" frameborder="no" allowtransparency="true" allowfullscreen="true" style="width: 100%; min-height: 400px; max-height: 1000px;"></iframe>`,
		Width:     580,
		Height:    400,
		ExtractID: func(captures []string) string {
			if len(captures) < 2 {
				return ""
			}
			return captures[1]
		},
	}
}

func soundCloudSpec() Spec {
	return Spec{
		Key:       "soundcloud",
		Pattern:   `https?://(?:www\.|m\.)?soundcloud\.com/([^/?#]+/[^/?#]+)/?(?:[?#].*)?`,
		Strategy:  StrategyLocalTemplate,
		EmbedURL:  "https://w.soundcloud.com/player/?url=" + RemoteIDPlaceholder + "&visual=true",
		Width:     600,
		Height:    166,
		ExtractID: func(captures []string) string {
			if len(captures) == 0 || captures[0] == "" {
				return ""
			}
			return url.QueryEscape("https://soundcloud.com/" + captures[0])
		},
	}
}

func twitterSpec() Spec {
	return Spec{
		Key:      "twitter",
		Pattern:  `https?://(?:www\.|mobile\.)?(?:twitter|x)\.com/[^/?#]+/status(?:es)?/(\d+)(?:[/?#].*)?`,
		Strategy: StrategyRemoteFetch,
	}
}

func facebookSpec() Spec {
	return Spec{
		Key:      "facebook",
		Pattern:  `https?://(?:www\.|m\.)?facebook\.com/([^/?#&]+)/.+`,
		Strategy: StrategyRemoteFetch,
	}
}

func tikTokSpec() Spec {
	return Spec{
		Key:      "tiktok",
		Pattern:  `https?://(?:www\.)?tiktok\.com/@[^/?#]+/video/(\d+)(?:[?#].*)?`,
		Strategy: StrategyRemoteFetch,
	}
}
