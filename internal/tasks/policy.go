package tasks

import (
	"fmt"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// Action is the outcome of the degradation policy.
type Action int

const (
	// Automatic creates the playlist through the target's write API.
	Automatic Action = iota
	// Manual produces instructions for creating the playlist by hand.
	Manual
)

func (a Action) String() string {
	if a == Manual {
		return "manual"
	}
	return "automatic"
}

// Decide picks how a conversion to target proceeds given the credentials available for it.
//
//	Spotify  token        -> Automatic
//	Spotify  no token     -> AuthRequired
//	YouTube  token        -> Automatic
//	YouTube  key only     -> Manual
//	YouTube  neither      -> MissingCredentials
func Decide(target models.Platform, creds models.PlatformCredentials) (Action, error) {
	switch target {
	case models.Spotify:
		if creds.HasToken() {
			return Automatic, nil
		}
		return Automatic, shared.NewServiceError(shared.KindAuthRequired, string(target), "convert",
			fmt.Errorf("a Spotify access token is required to create playlists"))
	case models.YouTube:
		switch {
		case creds.HasToken():
			return Automatic, nil
		case creds.HasKey():
			return Manual, nil
		default:
			return Automatic, shared.NewServiceError(shared.KindMissingCredentials, string(target), "convert",
				fmt.Errorf("a YouTube access token or API key is required"))
		}
	default:
		return Automatic, fmt.Errorf("%w: unsupported platform %q", shared.ErrInvalidArgument, target)
	}
}

// OnQuotaExceeded decides what happens when target runs out of quota mid-conversion.
//
// YouTube falls back to manual instructions; Spotify has no fallback and the quota error stands.
func OnQuotaExceeded(target models.Platform) (Action, error) {
	if target == models.YouTube {
		return Manual, nil
	}
	return Automatic, shared.NewServiceError(shared.KindQuotaExceeded, string(target), "convert",
		fmt.Errorf("rate limit exhausted and no manual fallback exists"))
}
