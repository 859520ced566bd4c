package seeder

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/smartscan/smartscan/internal/tablestore"
)

// TradeRecord is the demo row shape. The parquet tags keep snapshot
// files aligned with the schema registered in the table store.
type TradeRecord struct {
	TradeId            string  `parquet:"TradeId"`
	Amount             float64 `parquet:"Amount"`
	SourceCountry      string  `parquet:"SourceCountry"`
	DestinationCountry string  `parquet:"DestinationCountry"`
	TradeDate          string  `parquet:"TradeDate"`
	TradeType          string  `parquet:"TradeType"`
	CreatedBy          string  `parquet:"CreatedBy"`
}

func (r TradeRecord) Item() tablestore.Item {
	return tablestore.Item{
		"TradeId":            r.TradeId,
		"Amount":             r.Amount,
		"SourceCountry":      r.SourceCountry,
		"DestinationCountry": r.DestinationCountry,
		"TradeDate":          r.TradeDate,
		"TradeType":          r.TradeType,
		"CreatedBy":          r.CreatedBy,
	}
}

// TradeSchema is the attribute layout the generator emits.
func TradeSchema(tableName string) tablestore.Schema {
	return tablestore.Schema{
		TableName: tableName,
		Attributes: []tablestore.AttributeDef{
			{Name: "TradeId", Type: tablestore.TypeString},
			{Name: "Amount", Type: tablestore.TypeNumber},
			{Name: "SourceCountry", Type: tablestore.TypeString},
			{Name: "DestinationCountry", Type: tablestore.TypeString},
			{Name: "TradeDate", Type: tablestore.TypeString},
			{Name: "TradeType", Type: tablestore.TypeString},
			{Name: "CreatedBy", Type: tablestore.TypeString},
		},
	}
}

type Generator struct {
	rnd       *rand.Rand
	createdBy string
	sequence  int64
}

func NewGenerator(seed int64, createdBy string) *Generator {
	return &Generator{
		rnd:       rand.New(rand.NewSource(seed)),
		createdBy: createdBy,
	}
}

func (g *Generator) NextRecord() TradeRecord {
	g.sequence++
	tradeType := g.pickTradeType()
	source := pickOne(g.rnd, []string{"CN", "US", "DE", "JP", "IN", "BR"})
	destination := source
	for destination == source {
		destination = pickOne(g.rnd, []string{"CN", "US", "DE", "JP", "IN", "BR"})
	}
	tradeDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, g.rnd.Intn(180))

	return TradeRecord{
		TradeId:            fmt.Sprintf("t-%06d", g.sequence),
		Amount:             g.pickAmount(tradeType),
		SourceCountry:      source,
		DestinationCountry: destination,
		TradeDate:          tradeDate.Format("2006-01-02"),
		TradeType:          tradeType,
		CreatedBy:          g.createdBy,
	}
}

func (g *Generator) pickTradeType() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 45:
		return "import"
	case p < 85:
		return "export"
	default:
		return "transit"
	}
}

func (g *Generator) pickAmount(tradeType string) float64 {
	switch tradeType {
	case "transit":
		return round2(50 + g.rnd.Float64()*450)
	default:
		return round2(100 + g.rnd.Float64()*9900)
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
