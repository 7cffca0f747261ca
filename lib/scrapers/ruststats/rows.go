package ruststats

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var steamIdRegex = regexp.MustCompile(`^[0-9]{17}$`)

// identityCandidates builds the ordered list of search keys tried against
// the table filter: the numeric steam id first, then the vanity segment of
// the profile url, then the raw identity string itself.
func identityCandidates(player Identity) []string {
	var candidates []string
	seen := map[string]bool{}
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		candidates = append(candidates, c)
	}

	if steamIdRegex.MatchString(player.SteamId) {
		add(player.SteamId)
	}
	if player.SteamUrl != "" {
		segments := strings.Split(strings.Trim(player.SteamUrl, "/"), "/")
		if len(segments) > 0 {
			add(segments[len(segments)-1])
		}
	}
	if player.SteamUrl != "" {
		add(player.SteamUrl)
	} else {
		add(player.SteamId)
	}

	return candidates
}

// locateRow tries each identity candidate against the filter in order and
// returns the first unique row match. The error is always a
// *PlayerNotFoundError when every candidate misses.
func locateRow(ctx context.Context, surface Surface, player Identity) (Row, error) {
	candidates := identityCandidates(player)
	if len(candidates) == 0 {
		return nil, &PlayerNotFoundError{
			Label:  player.Label,
			Reason: "player has no steam id or profile url to search by",
		}
	}

	for _, candidate := range candidates {
		row, err := surface.LocateRow(ctx, candidate)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, ErrNoRow) {
			return nil, err
		}
	}

	return nil, &PlayerNotFoundError{
		Label: player.Label,
		Reason: fmt.Sprintf(
			"no unique row matched any of the search keys %v",
			candidates,
		),
	}
}
