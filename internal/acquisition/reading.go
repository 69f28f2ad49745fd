package acquisition

import (
	"modbus-acquisition/internal/catalog"
	"modbus-acquisition/internal/historian"
	"modbus-acquisition/internal/modbus"
)

// Reading is one sampled value for one point in one cycle
type Reading struct {
	DataSourceID int64
	PointID      int64
	IsTrend      bool
	ObjectType   string
	Value        modbus.Value
}

// cycleBatches holds one cycle's readings partitioned by object type.
// Point order is preserved within each batch; the batches are discarded
// when the cycle completes.
type cycleBatches struct {
	analog  []Reading
	energy  []Reading
	digital []Reading
}

// add routes a reading into its batch. Unknown object types are
// silently ignored.
func (b *cycleBatches) add(r Reading) {
	switch r.ObjectType {
	case catalog.ObjectTypeAnalog:
		b.analog = append(b.analog, r)
	case catalog.ObjectTypeEnergy:
		b.energy = append(b.energy, r)
	case catalog.ObjectTypeDigital:
		b.digital = append(b.digital, r)
	}
}

// all returns the concatenation of the three batches. Publication and
// persistence both walk this one sequence.
func (b *cycleBatches) all() []Reading {
	out := make([]Reading, 0, len(b.analog)+len(b.energy)+len(b.digital))
	out = append(out, b.analog...)
	out = append(out, b.energy...)
	out = append(out, b.digital...)
	return out
}

// rows converts the cycle's readings into persistence candidates
func (b *cycleBatches) rows() []historian.Row {
	readings := b.all()
	rows := make([]historian.Row, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, historian.Row{
			PointID:    r.PointID,
			ObjectType: r.ObjectType,
			IsTrend:    r.IsTrend,
			Value:      r.Value,
		})
	}
	return rows
}
