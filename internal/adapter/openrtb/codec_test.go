package openrtb

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/prebid/openrtb/v20/openrtb3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtb-bidder/internal/core/domain"
	"rtb-bidder/internal/core/port"
)

var now = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

const sampleRequest = `{
  "id": "req-1",
  "tmax": 80,
  "imp": [{"id": "imp-1", "bidfloor": 1.5}, {"id": "imp-2", "bidfloor": 9}],
  "site": {"domain": "news.example.com"},
  "device": {"devicetype": 4, "language": "en", "geo": {"country": "USA"}},
  "user": {"data": [{"id": "dmp", "segment": [{"id": "sports"}, {"name": "autos"}, {}]}]}
}`

func TestDecode(t *testing.T) {
	req, err := Codec{}.Decode([]byte(sampleRequest), "adx", now)
	require.NoError(t, err)

	assert.Equal(t, "req-1", req.ID)
	assert.Equal(t, "imp-1", req.ImpID)
	assert.Equal(t, "adx", req.Exchange)
	assert.Equal(t, int64(1500), req.FloorPrice)
	assert.Equal(t, now.Add(80*time.Millisecond), req.Deadline)
	assert.Equal(t, domain.Attributes{
		Site:     "news.example.com",
		Geo:      "USA",
		Device:   "phone",
		Language: "en",
		Segments: []string{"sports", "autos"},
	}, req.Attributes)
}

func TestDecodeAppAndDefaults(t *testing.T) {
	body := `{"id": "r", "imp": [{"id": "1"}], "app": {"bundle": "com.example.game"}, "user": {"geo": {"country": "DEU"}}}`
	req, err := Codec{}.Decode([]byte(body), "openx", now)
	require.NoError(t, err)

	assert.Equal(t, "com.example.game", req.Attributes.Site)
	assert.Equal(t, "DEU", req.Attributes.Geo)
	assert.True(t, req.Deadline.IsZero(), "no tmax leaves the default deadline to the gateway")
	assert.Zero(t, req.FloorPrice)
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{`},
		{name: "missing id", body: `{"imp": [{"id": "1"}]}`},
		{name: "no imp", body: `{"id": "r"}`},
		{name: "negative floor", body: `{"id": "r", "imp": [{"id": "1", "bidfloor": -1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Codec{}.Decode([]byte(tt.body), "adx", now)
			assert.ErrorIs(t, err, port.ErrInvalidRequest)
			assert.Equal(t, openrtb3.NoBidInvalidRequest, NBRFromError(err))
		})
	}
}

func TestEncodeBid(t *testing.T) {
	c := Codec{NoticeBaseURL: "https://bidder.example/", Seat: "seat-1"}
	req := domain.BidRequest{ID: "req-1", ImpID: "imp-1"}
	d := domain.BidDecision{RequestID: "req-1", Bid: &domain.Bid{CampaignID: "c1", Price: 2500, ReservationID: "res-1"}}

	body, err := c.Encode(req, d)
	require.NoError(t, err)

	var resp openrtb2.BidResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.SeatBid, 1)
	require.Len(t, resp.SeatBid[0].Bid, 1)
	bid := resp.SeatBid[0].Bid[0]

	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, "seat-1", resp.SeatBid[0].Seat)
	assert.Equal(t, "res-1", bid.ID)
	assert.Equal(t, "imp-1", bid.ImpID)
	assert.Equal(t, 2.5, bid.Price)
	assert.Equal(t, "c1", bid.CID)
	assert.Equal(t, "https://bidder.example/notice/win/res-1?price=${AUCTION_PRICE}", bid.NURL)
	assert.Equal(t, "https://bidder.example/notice/loss/res-1", bid.LURL)
}

func TestEncodeNoBid(t *testing.T) {
	req := domain.BidRequest{ID: "req-1"}

	body, err := Codec{}.Encode(req, domain.NoBid("req-1", domain.NoBidPaced))
	require.NoError(t, err)
	assert.Nil(t, body)

	body, err = Codec{}.Encode(req, domain.NoBid("req-1", domain.NoBidInvalidRequest))
	require.NoError(t, err)
	var resp openrtb2.BidResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.NBR)
	assert.Equal(t, openrtb3.NoBidInvalidRequest, *resp.NBR)
}

func TestNBR(t *testing.T) {
	assert.Equal(t, openrtb3.NoBidInsufficientTime, NBR(domain.NoBidDeadlineExceeded))
	assert.Equal(t, openrtb3.NoBidTechnicalError, NBR(domain.NoBidShuttingDown))
	assert.Equal(t, openrtb3.NoBidUnknownError, NBR(domain.NoBidBelowFloor))
	assert.Equal(t, openrtb3.NoBidTechnicalError, NBRFromError(port.ErrGatewayClosed))
	assert.Equal(t, openrtb3.NoBidUnknownError, NBRFromError(errors.New("boom")))
}

func TestPrices(t *testing.T) {
	assert.Equal(t, int64(1234), CPMToMicros(1.2333))
	assert.Equal(t, int64(1000), CPMToMicros(1))
	assert.Equal(t, 1.234, MicrosToCPM(1234))

	p, err := ParsePrice("2.5")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), p)

	_, err = ParsePrice("${AUCTION_PRICE}")
	assert.ErrorIs(t, err, port.ErrInvalidRequest)
	_, err = ParsePrice("-1")
	assert.ErrorIs(t, err, port.ErrInvalidRequest)
}
