package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/golang/glog"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

const (
	DefaultTwitchGQLURL   = "https://gql.twitch.tv/gql"
	DefaultTwitchUsherURL = "https://usher.ttvnw.net"
	// the public client id of the twitch web player
	DefaultTwitchClientID = "kimne78kx3ncx6brgo4mv6wki5h1ko"
)

var ErrTwitchChannel = errors.New("InvalidTwitchChannel")

var twitchChannelRe = regexp.MustCompile(`^[a-zA-Z0-9_]{1,25}$`)

const playbackAccessTokenQuery = `query PlaybackAccessToken_Template($login: String!, $isLive: Boolean!, $vodID: ID!, $isVod: Boolean!, $playerType: String!) {` +
	`streamPlaybackAccessToken(channelName: $login, params: {platform: "web", playerBackend: "mediaplayer", playerType: $playerType}) @include(if: $isLive) { value signature __typename } ` +
	`videoPlaybackAccessToken(id: $vodID, params: {platform: "web", playerBackend: "mediaplayer", playerType: $playerType}) @include(if: $isVod) { value signature __typename } }`

//TwitchResolver resolves twitch.tv channel URLs to HLS renditions through the web player's access token flow.
type TwitchResolver struct {
	Client   *http.Client
	GQLURL   string
	UsherURL string
	ClientID string
}

func NewTwitchResolver(client *http.Client, clientID string) *TwitchResolver {
	if clientID == "" {
		clientID = DefaultTwitchClientID
	}
	return &TwitchResolver{Client: client, GQLURL: DefaultTwitchGQLURL, UsherURL: DefaultTwitchUsherURL, ClientID: clientID}
}

//IsTwitchURL reports whether sourceURL points at twitch.tv.
func IsTwitchURL(sourceURL string) bool {
	u, err := url.Parse(withScheme(sourceURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "twitch.tv" || strings.HasSuffix(host, ".twitch.tv")
}

//TwitchChannel extracts the channel login from "https://www.twitch.tv/<channel>", "twitch.tv/<channel>" or a bare login.
func TwitchChannel(sourceURL string) (string, error) {
	name := sourceURL
	if IsTwitchURL(sourceURL) {
		u, _ := url.Parse(withScheme(sourceURL))
		name = strings.Split(strings.Trim(u.Path, "/"), "/")[0]
	}
	if !twitchChannelRe.MatchString(name) {
		return "", errors.Wrapf(types.ErrResolution, "%v: %q", ErrTwitchChannel, sourceURL)
	}
	return strings.ToLower(name), nil
}

func withScheme(s string) string {
	if !strings.Contains(s, "://") {
		return "https://" + s
	}
	return s
}

type accessToken struct {
	Value     string `json:"value"`
	Signature string `json:"signature"`
}

type gqlRequest struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
}

type gqlResponse struct {
	Data struct {
		StreamPlaybackAccessToken *accessToken `json:"streamPlaybackAccessToken"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (r *TwitchResolver) accessToken(ctx context.Context, channel string) (*accessToken, error) {
	body, err := json.Marshal(gqlRequest{
		OperationName: "PlaybackAccessToken_Template",
		Query:         playbackAccessTokenQuery,
		Variables: map[string]interface{}{
			"isLive":     true,
			"login":      channel,
			"isVod":      false,
			"vodID":      "",
			"playerType": "embed",
		},
	})
	if err != nil {
		return nil, err
	}
	gqlURL := r.GQLURL
	if gqlURL == "" {
		gqlURL = DefaultTwitchGQLURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(types.ErrResolution, "bad gql url %v: %v", gqlURL, err)
	}
	clientID := r.ClientID
	if clientID == "" {
		clientID = DefaultTwitchClientID
	}
	req.Header.Set("Client-ID", clientID)
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(types.ErrResolution, "requesting access token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, errors.WithStack(&StatusError{URL: gqlURL, Code: resp.StatusCode})
	}

	var gr gqlResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPlaylistSize)).Decode(&gr); err != nil {
		return nil, errors.Wrapf(types.ErrResolution, "decoding access token: %v", err)
	}
	if len(gr.Errors) > 0 {
		return nil, errors.Wrapf(types.ErrResolution, "access token for %v: %v", channel, gr.Errors[0].Message)
	}
	tok := gr.Data.StreamPlaybackAccessToken
	if tok == nil || tok.Value == "" || tok.Signature == "" {
		return nil, errors.Wrapf(types.ErrResolution, "no access token for channel %v", channel)
	}
	return tok, nil
}

func (r *TwitchResolver) masterURL(channel string, tok *accessToken) string {
	usher := r.UsherURL
	if usher == "" {
		usher = DefaultTwitchUsherURL
	}
	q := url.Values{}
	q.Set("player", "twitchweb")
	q.Set("p", fmt.Sprint(rand.Intn(1000000)))
	q.Set("type", "any")
	q.Set("allow_source", "true")
	q.Set("allow_audio_only", "true")
	q.Set("allow_spectre", "false")
	q.Set("fast_bread", "true")
	q.Set("playlist_include_framerate", "true")
	q.Set("sig", tok.Signature)
	q.Set("token", tok.Value)
	return fmt.Sprintf("%v/api/channel/hls/%v.m3u8?%v", strings.TrimRight(usher, "/"), channel, q.Encode())
}

func (r *TwitchResolver) Manifest(ctx context.Context, sourceURL string) (*Manifest, error) {
	channel, err := TwitchChannel(sourceURL)
	if err != nil {
		return nil, err
	}
	tok, err := r.accessToken(ctx, channel)
	if err != nil {
		return nil, err
	}
	master := r.masterURL(channel, tok)
	data, err := fetch(ctx, r.Client, master, nil)
	if err != nil {
		if httpStatus(err) == http.StatusNotFound {
			return nil, errors.Wrapf(types.ErrResolution, "channel %v is offline", channel)
		}
		return nil, err
	}
	m, err := ParseManifest(master, data)
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("Twitch channel %v offers %v", channel, m.Qualities())
	return m, nil
}

func (r *TwitchResolver) Qualities(ctx context.Context, sourceURL string) ([]string, error) {
	m, err := r.Manifest(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return m.Qualities(), nil
}

func (r *TwitchResolver) PlaybackURL(ctx context.Context, sourceURL, quality string) (string, error) {
	m, err := r.Manifest(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	v, err := m.Variant(quality)
	if err != nil {
		return "", err
	}
	return v.URL, nil
}
