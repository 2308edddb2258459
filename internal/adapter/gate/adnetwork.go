package gate

import (
	"context"

	"follow-exchange/internal/core/port"
)

// ClientResolvedAds is the AdNetwork used when the ad SDK runs in the
// client: the client only asks for an ad ticket after the SDK promise
// resolved, so showing the ad on the server side is a no-op.
type ClientResolvedAds struct{}

var _ port.AdNetwork = ClientResolvedAds{}

func (ClientResolvedAds) ShowAd(ctx context.Context, _ string) (bool, error) {
	return true, ctx.Err()
}
