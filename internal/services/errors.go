package services

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/zmb3/spotify/v2"
	"google.golang.org/api/googleapi"
)

var httpStatusPattern = regexp.MustCompile(`HTTP (\d{3})`)

// quotaReasons are the YouTube Data API error reasons that mean the project ran out of quota.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// spotifyStatus extracts the HTTP status from a zmb3/spotify error.
func spotifyStatus(err error) int {
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status
	}
	var sp *spotify.Error
	if errors.As(err, &sp) && sp != nil {
		return sp.Status
	}
	if m := httpStatusPattern.FindStringSubmatch(err.Error()); m != nil {
		status, _ := strconv.Atoi(m[1])
		return status
	}
	return 0
}

// classifySpotify maps a Spotify client error to a [shared.ServiceError].
// notFoundOnForbidden treats 403 as a missing playlist, which is how private playlists surface.
func classifySpotify(op string, err error, notFoundOnForbidden bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	kind := shared.KindTransient
	switch status := spotifyStatus(err); {
	case status == http.StatusUnauthorized:
		kind = shared.KindAuthRequired
	case status == http.StatusNotFound:
		kind = shared.KindNotFound
	case status == http.StatusForbidden && notFoundOnForbidden:
		kind = shared.KindNotFound
	case status == http.StatusForbidden:
		kind = shared.KindAuthRequired
	case status == http.StatusTooManyRequests:
		kind = shared.KindQuotaExceeded
	}
	return shared.NewServiceError(kind, string(models.Spotify), op, err)
}

// classifyYouTube maps a YouTube Data API error to a [shared.ServiceError].
//
// Quota exhaustion is recognised from the error reason or, failing that, from "quota" in the body or message.
func classifyYouTube(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	kind := shared.KindTransient
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		kind = youtubeKind(gerr)
	} else if strings.Contains(strings.ToLower(err.Error()), "quota") {
		kind = shared.KindQuotaExceeded
	}
	return shared.NewServiceError(kind, string(models.YouTube), op, err)
}

func youtubeKind(gerr *googleapi.Error) shared.ErrorKind {
	for _, item := range gerr.Errors {
		if quotaReasons[item.Reason] {
			return shared.KindQuotaExceeded
		}
	}
	if strings.Contains(strings.ToLower(gerr.Body), "quota") || strings.Contains(strings.ToLower(gerr.Message), "quota") {
		return shared.KindQuotaExceeded
	}

	for _, item := range gerr.Errors {
		switch item.Reason {
		case "playlistNotFound", "videoNotFound", "notFound":
			return shared.KindNotFound
		case "authError", "insufficientPermissions", "forbidden", "youtubeSignupRequired":
			return shared.KindAuthRequired
		}
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return shared.KindAuthRequired
	case http.StatusNotFound:
		return shared.KindNotFound
	case http.StatusTooManyRequests:
		return shared.KindQuotaExceeded
	default:
		return shared.KindTransient
	}
}
