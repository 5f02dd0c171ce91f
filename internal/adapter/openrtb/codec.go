// Package openrtb converts OpenRTB 2.x bid requests and responses to and
// from the core types.
//
// Prices on the wire are CPM in currency units. Inside the bidder money is
// micro-units per impression, so 1.00 CPM is 1000 micros.
package openrtb

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prebid/openrtb/v20/adcom1"
	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/shopspring/decimal"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

// AuctionPriceMacro is substituted by the exchange with the clearing price.
const AuctionPriceMacro = "${AUCTION_PRICE}"

// cpmShift converts CPM currency units to per-impression micros: *1e6/1e3.
const cpmShift = 3

// CPMToMicros converts a CPM price to per-impression micros, rounding up so
// that a floor is never undercut.
func CPMToMicros(cpm float64) int64 {
	return decimal.NewFromFloat(cpm).Shift(cpmShift).Ceil().IntPart()
}

// MicrosToCPM converts per-impression micros to a CPM price.
func MicrosToCPM(micros int64) float64 {
	return decimal.New(micros, -cpmShift).InexactFloat64()
}

// ParsePrice parses a clearing price reported in a notice URL.
func ParsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: price %q", port.ErrInvalidRequest, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative price %q", port.ErrInvalidRequest, s)
	}
	return d.Shift(cpmShift).Round(0).IntPart(), nil
}

var deviceTypes = map[adcom1.DeviceType]string{
	adcom1.DeviceMobile:    "mobile",
	adcom1.DevicePC:        "desktop",
	adcom1.DeviceTV:        "ctv",
	adcom1.DevicePhone:     "phone",
	adcom1.DeviceTablet:    "tablet",
	adcom1.DeviceConnected: "connected",
	adcom1.DeviceSetTopBox: "settopbox",
	adcom1.DeviceOOH:       "dooh",
}

// DeviceTypeName returns the targeting value of an OpenRTB device type.
func DeviceTypeName(t adcom1.DeviceType) string {
	return deviceTypes[t]
}

// Codec translates between OpenRTB JSON and the core types.
type Codec struct {
	// NoticeBaseURL prefixes the win and loss notice URLs.
	NoticeBaseURL string
	// Seat is reported on every seat bid.
	Seat string
}

// Decode parses an OpenRTB bid request received from exchange at now. Only
// the first impression is bid on. A zero tmax leaves the deadline unset so
// the gateway applies its default.
func (c Codec) Decode(body []byte, exchange string, now time.Time) (domain.BidRequest, error) {
	var ortb openrtb2.BidRequest
	if err := json.Unmarshal(body, &ortb); err != nil {
		return domain.BidRequest{}, fmt.Errorf("%w: %v", port.ErrInvalidRequest, err)
	}
	if ortb.ID == "" {
		return domain.BidRequest{}, fmt.Errorf("%w: missing id", port.ErrInvalidRequest)
	}
	if len(ortb.Imp) == 0 {
		return domain.BidRequest{}, fmt.Errorf("%w: request %s has no imp", port.ErrInvalidRequest, ortb.ID)
	}
	imp := ortb.Imp[0]
	if imp.BidFloor < 0 {
		return domain.BidRequest{}, fmt.Errorf("%w: negative bidfloor", port.ErrInvalidRequest)
	}

	req := domain.BidRequest{
		ID:         ortb.ID,
		ImpID:      imp.ID,
		Exchange:   exchange,
		Timestamp:  now,
		FloorPrice: CPMToMicros(imp.BidFloor),
	}
	if ortb.TMax > 0 {
		req.Deadline = now.Add(time.Duration(ortb.TMax) * time.Millisecond)
	}

	switch {
	case ortb.Site != nil:
		req.Attributes.Site = ortb.Site.Domain
	case ortb.App != nil:
		req.Attributes.Site = ortb.App.Bundle
	}
	if d := ortb.Device; d != nil {
		req.Attributes.Device = DeviceTypeName(d.DeviceType)
		req.Attributes.Language = d.Language
		if d.Geo != nil {
			req.Attributes.Geo = d.Geo.Country
		}
	}
	if u := ortb.User; u != nil {
		if req.Attributes.Geo == "" && u.Geo != nil {
			req.Attributes.Geo = u.Geo.Country
		}
		for _, data := range u.Data {
			for _, seg := range data.Segment {
				id := seg.ID
				if id == "" {
					id = seg.Name
				}
				if id != "" {
					req.Attributes.Segments = append(req.Attributes.Segments, id)
				}
			}
		}
	}
	return req, nil
}

// Encode renders a bid decision. It returns nil for a plain no-bid, which
// the transport answers with an empty response.
func (c Codec) Encode(req domain.BidRequest, d domain.BidDecision) ([]byte, error) {
	switch {
	case d.IsBid():
		return json.Marshal(c.bidResponse(req, d.Bid))
	case d.Reason.Rejected():
		return json.Marshal(NoBidResponse(req.ID, NBR(d.Reason)))
	default:
		return nil, nil
	}
}

func (c Codec) bidResponse(req domain.BidRequest, bid *domain.Bid) *openrtb2.BidResponse {
	id := string(bid.ReservationID)
	base := strings.TrimRight(c.NoticeBaseURL, "/")
	return &openrtb2.BidResponse{
		ID:    req.ID,
		BidID: id,
		Cur:   "USD",
		SeatBid: []openrtb2.SeatBid{{
			Seat: c.Seat,
			Bid: []openrtb2.Bid{{
				ID:    id,
				ImpID: req.ImpID,
				Price: MicrosToCPM(bid.Price),
				CID:   string(bid.CampaignID),
				NURL:  fmt.Sprintf("%s/notice/win/%s?price=%s", base, id, AuctionPriceMacro),
				LURL:  fmt.Sprintf("%s/notice/loss/%s", base, id),
			}},
		}},
	}
}
