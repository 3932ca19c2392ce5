package packer

import (
	"github.com/lennsky/litepool"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeEvent packs a task lifecycle event for storage.
func EncodeEvent(ev *litepool.Event) ([]byte, error) {
	return msgpack.Marshal(ev)
}

// DecodeEvent unpacks an event previously encoded with EncodeEvent.
func DecodeEvent(raw []byte) (litepool.Event, error) {
	var ev litepool.Event
	err := msgpack.Unmarshal(raw, &ev)
	return ev, err
}
