package core

import (
	"fmt"
	"math"
	"time"

	"hoplink/protocol"
)

// Item is the purpose number selecting what an ack payload carries
type Item uint8

const (
	ItemVersion Item = iota
	ItemVolts
	ItemPackets
	ItemReconnects
	ItemFailsafes
	ItemActiveRadio
	ItemRadio0Seconds
	ItemRadio1Seconds
	ItemTemperature
	ItemBaroAltitude
	ItemBaroTemperature
	ItemLatitude
	ItemLongitude
	ItemSpeed
	ItemCourse
	ItemSatellites
	ItemGPSAltitude
	ItemGPSDate
	ItemGPSTime

	ItemCount
)

var itemNames = [ItemCount]string{
	"version", "volts", "packets", "reconnects", "failsafes", "active_radio",
	"radio0_seconds", "radio1_seconds", "temperature", "baro_altitude",
	"baro_temperature", "latitude", "longitude", "speed", "course",
	"satellites", "gps_altitude", "gps_date", "gps_time",
}

func (i Item) String() string {
	if i < ItemCount {
		return itemNames[i]
	}
	return fmt.Sprintf("item%d", uint8(i))
}

// Format is how an item's four data bytes are interpreted
type Format uint8

const (
	FormatFloat Format = iota
	FormatCount
	FormatTriple
)

func (i Item) Format() Format {
	switch i {
	case ItemVersion, ItemGPSDate, ItemGPSTime:
		return FormatTriple
	case ItemPackets, ItemReconnects, ItemFailsafes, ItemActiveRadio,
		ItemRadio0Seconds, ItemRadio1Seconds, ItemSatellites:
		return FormatCount
	default:
		return FormatFloat
	}
}

// Ceiling is the highest item sent for the sensors found at boot
func Ceiling(s Sensors) Item {
	switch {
	case s.GPS:
		return ItemGPSTime
	case s.Baro:
		return ItemBaroTemperature
	default:
		return ItemTemperature
	}
}

// Reading is one telemetry value. Which field is meaningful depends on the
// item's Format.
type Reading struct {
	Float  float32
	Count  uint32
	Triple [3]byte
}

func FloatReading(f float32) Reading     { return Reading{Float: f} }
func CountReading(n uint32) Reading      { return Reading{Count: n} }
func TripleReading(a, b, c byte) Reading { return Reading{Triple: [3]byte{a, b, c}} }

// encode writes r into the ack data bytes
func (r Reading) encode(item Item, a *protocol.AckPayload) {
	switch item.Format() {
	case FormatTriple:
		a.SetTriple(r.Triple[0], r.Triple[1], r.Triple[2])
	case FormatCount:
		a.SetUint32(r.Count)
	default:
		a.SetFloat(r.Float)
	}
}

func decodeReading(item Item, a protocol.AckPayload) Reading {
	switch item.Format() {
	case FormatTriple:
		x, y, z := a.Triple()
		return TripleReading(x, y, z)
	case FormatCount:
		return CountReading(a.Uint32())
	default:
		return FloatReading(a.Float())
	}
}

// Multiplexer rotates the ack purpose through the telemetry items, one per
// acknowledged packet. It never blocks: a reading the source cannot supply
// right now is replaced by the last value it did supply.
type Multiplexer struct {
	source  TelemetrySource
	ceiling Item
	purpose Item
	cache   [ItemCount]Reading
	wraps   uint32
}

func NewMultiplexer(sensors Sensors, source TelemetrySource) *Multiplexer {
	return &Multiplexer{source: source, ceiling: Ceiling(sensors)}
}

func (m *Multiplexer) Ceiling() Item { return m.ceiling }
func (m *Multiplexer) Purpose() Item { return m.purpose }
func (m *Multiplexer) Wraps() uint32 { return m.wraps }

// Tick advances the purpose counter and rebuilds lc.Ack for it, with the
// hop flag set as requested
func (m *Multiplexer) Tick(lc *LinkContext, hop bool) protocol.AckPayload {
	if m.purpose >= m.ceiling {
		m.purpose = 0
		m.wraps++
	} else {
		m.purpose++
	}
	m.Fill(lc, hop)
	return lc.Ack
}

// Fill encodes the current purpose without advancing
func (m *Multiplexer) Fill(lc *LinkContext, hop bool) {
	var a protocol.AckPayload
	a.Purpose = byte(m.purpose)
	m.reading(lc, m.purpose).encode(m.purpose, &a)
	a.SetHop(hop)
	lc.Ack = a
}

func (m *Multiplexer) reading(lc *LinkContext, item Item) Reading {
	switch item {
	case ItemVersion:
		return TripleReading(protocol.VersionMajor, protocol.VersionMinor, protocol.VersionPatch)
	case ItemPackets:
		return CountReading(lc.Stats.Packets)
	case ItemReconnects:
		return CountReading(lc.Stats.Reconnects)
	case ItemFailsafes:
		return CountReading(lc.Stats.Failsafes)
	case ItemActiveRadio:
		return CountReading(uint32(lc.Stats.ActiveRadio))
	case ItemRadio0Seconds:
		return CountReading(lc.Stats.RadioSeconds[0])
	case ItemRadio1Seconds:
		return CountReading(lc.Stats.RadioSeconds[1])
	}
	if m.source != nil {
		if r, ok := m.source.Reading(item); ok {
			m.cache[item] = r
		}
	}
	return m.cache[item]
}

// TelemetryTable is the transmitter's copy of the latest value per item
type TelemetryTable struct {
	values  [ItemCount]Reading
	seen    [ItemCount]bool
	updates uint32
}

// Update stores the item carried by an ack. Unknown purposes are ignored.
func (t *TelemetryTable) Update(a protocol.AckPayload) (Item, bool) {
	item := Item(a.Item())
	if item >= ItemCount {
		return item, false
	}
	t.values[item] = decodeReading(item, a)
	t.seen[item] = true
	t.updates++
	return item, true
}

func (t *TelemetryTable) Get(item Item) (Reading, bool) {
	if item >= ItemCount || !t.seen[item] {
		return Reading{}, false
	}
	return t.values[item], true
}

func (t *TelemetryTable) Updates() uint32 {
	return t.updates
}

// Format renders an item's value for logs
func (t *TelemetryTable) Format(item Item) string {
	r, ok := t.Get(item)
	if !ok {
		return "-"
	}
	switch item.Format() {
	case FormatTriple:
		if item == ItemVersion {
			return fmt.Sprintf("%d.%d.%d", r.Triple[0], r.Triple[1], r.Triple[2])
		}
		return fmt.Sprintf("%02d/%02d/%02d", r.Triple[0], r.Triple[1], r.Triple[2])
	case FormatCount:
		return fmt.Sprintf("%d", r.Count)
	default:
		if math.IsNaN(float64(r.Float)) {
			return "nan"
		}
		return fmt.Sprintf("%.2f", r.Float)
	}
}

// GPSTime joins the GPS date (d/m/y, 2000-based) and time (h/m/s) items
func (t *TelemetryTable) GPSTime() (time.Time, bool) {
	d, ok := t.Get(ItemGPSDate)
	if !ok {
		return time.Time{}, false
	}
	c, ok := t.Get(ItemGPSTime)
	if !ok {
		return time.Time{}, false
	}
	day, month := int(d.Triple[0]), int(d.Triple[1])
	if day < 1 || day > 31 || month < 1 || month > 12 || c.Triple[0] > 23 || c.Triple[1] > 59 || c.Triple[2] > 60 {
		return time.Time{}, false
	}
	return time.Date(2000+int(d.Triple[2]), time.Month(month), day,
		int(c.Triple[0]), int(c.Triple[1]), int(c.Triple[2]), 0, time.UTC), true
}
