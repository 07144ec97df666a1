package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/brunomontezano/covidpsy/cohort"
	"github.com/brunomontezano/covidpsy/hier"
	"github.com/brunomontezano/covidpsy/screen"
)

// RunRecord identifies one analysis run in the results database.
type RunRecord struct {
	ID         string `gorm:"primaryKey"`
	Input      string
	Records    int
	CohortSize int
	Incident   int
	CreatedAt  time.Time
}

// TableName implements the gorm tabler interface.
func (RunRecord) TableName() string {
	return "runs"
}

// ScreenRecord is one screening term.
type ScreenRecord struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"index"`
	Domain    string
	Variable  string
	Level     string
	N         int
	RR        *float64
	Lower     *float64
	Upper     *float64
	PValue    *float64
	Retained  bool
	Converged bool
	Note      string
}

// TableName implements the gorm tabler interface.
func (ScreenRecord) TableName() string {
	return "screening"
}

// BlockRecord holds the fit statistics of one hierarchical block.
type BlockRecord struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index"`
	Block      int
	Status     string
	N          int
	LogLike    *float64
	AIC        *float64
	BIC        *float64
	Predictors string
}

// TableName implements the gorm tabler interface.
func (BlockRecord) TableName() string {
	return "blocks"
}

// TermRecord is one term of a hierarchical block.
type TermRecord struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"index"`
	Block       int
	Term        string
	Variable    string
	Level       string
	RR          *float64
	Lower       *float64
	Upper       *float64
	PValue      *float64
	Significant bool
}

// TableName implements the gorm tabler interface.
func (TermRecord) TableName() string {
	return "terms"
}

func nullable(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

// Store appends the screening and hierarchical results of a run to a
// SQLite database, creating its tables if needed.
func Store(path, runID, input string, flow cohort.Flow, screens []*screen.Report, res *hier.Result) error {

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return fmt.Errorf("report: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&RunRecord{}, &ScreenRecord{}, &BlockRecord{}, &TermRecord{}); err != nil {
		return fmt.Errorf("report: migrate %s: %w", path, err)
	}

	run := RunRecord{
		ID:         runID,
		Input:      input,
		Records:    flow.Raw,
		CohortSize: flow.AtRisk,
		Incident:   flow.Incident,
	}

	var srec []ScreenRecord
	for _, rep := range screens {
		for _, r := range rep.AllRows() {
			srec = append(srec, ScreenRecord{
				RunID:     runID,
				Domain:    r.Domain.String(),
				Variable:  r.Variable,
				Level:     r.Level,
				N:         r.N,
				RR:        nullable(r.RR),
				Lower:     nullable(r.Lower),
				Upper:     nullable(r.Upper),
				PValue:    nullable(r.PValue),
				Retained:  r.Retained,
				Converged: r.Converged,
				Note:      errString(r.Err),
			})
		}
	}

	var brec []BlockRecord
	var trec []TermRecord
	for _, b := range res.Blocks {
		br := BlockRecord{
			RunID:      runID,
			Block:      b.Index,
			Status:     "ok",
			Predictors: strings.Join(b.Predictors, " "),
		}
		if b.Result == nil {
			br.Status = errString(b.Err)
			brec = append(brec, br)
			continue
		}
		mr := b.Result
		br.N = mr.NumObs
		br.LogLike = nullable(mr.LogLike)
		br.AIC = nullable(mr.AIC)
		br.BIC = nullable(mr.BIC)
		brec = append(brec, br)

		for _, t := range mr.Terms {
			trec = append(trec, TermRecord{
				RunID:       runID,
				Block:       b.Index,
				Term:        t.Name,
				Variable:    t.Variable,
				Level:       t.Level,
				RR:          nullable(t.RR),
				Lower:       nullable(t.RRLower),
				Upper:       nullable(t.RRUpper),
				PValue:      nullable(t.PValue),
				Significant: b.Index == hier.NumBlocks && res.Significant(t),
			})
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(srec) > 0 {
			if err := tx.CreateInBatches(&srec, 100).Error; err != nil {
				return err
			}
		}
		if len(brec) > 0 {
			if err := tx.Create(&brec).Error; err != nil {
				return err
			}
		}
		if len(trec) > 0 {
			if err := tx.CreateInBatches(&trec, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
