package custody

import (
	"encoding/hex"
	"strconv"
	"strings"

	"marketd/core/events"
	"marketd/core/types"
)

const (
	EventTypeAssetMinted   = "custody.asset.minted"
	EventTypeHoldCreated   = "custody.hold.created"
	EventTypeHoldCancelled = "custody.hold.cancelled"
	EventTypeTransferred   = "custody.transferred"
)

type custodyEvent struct {
	evt *types.Event
}

func (e custodyEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e custodyEvent) Event() *types.Event { return e.evt }

func addrString(a [20]byte) string {
	return "0x" + hex.EncodeToString(a[:])
}

func assetIDsString(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

func newAssetMintedEvent(a *Asset) events.Event {
	return custodyEvent{evt: types.New(EventTypeAssetMinted, map[string]string{
		"id":         strconv.FormatUint(a.ID, 10),
		"owner":      addrString(a.Owner),
		"collection": a.Collection,
	})}
}

func newHoldEvent(eventType string, h *Hold) events.Event {
	return custodyEvent{evt: types.New(eventType, map[string]string{
		"id":         strconv.FormatUint(h.ID, 10),
		"from":       addrString(h.From),
		"assets":     assetIDsString(h.AssetIDs),
		"bundleHash": hex.EncodeToString(h.BundleHash[:]),
	})}
}

func newTransferEvent(to [20]byte, assetIDs []uint64, note string) events.Event {
	return custodyEvent{evt: types.New(EventTypeTransferred, map[string]string{
		"to":     addrString(to),
		"assets": assetIDsString(assetIDs),
		"note":   note,
	})}
}
