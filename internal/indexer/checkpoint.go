package indexer

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smorty/internal/apperr"
)

// checkpointRow is the indexer metadata table (spec.md §4.5: "Stored in
// an indexer metadata table"). One row per (chain, contract_address,
// event_name); last_block is the highest block fully ingested.
type checkpointRow struct {
	ContractAddress string `gorm:"column:contract_address;primaryKey"`
	EventName       string `gorm:"column:event_name;primaryKey"`
	Chain           string `gorm:"column:chain;primaryKey"`
	LastBlock       uint64 `gorm:"column:last_block"`
}

func (checkpointRow) TableName() string { return "smorty_indexer_checkpoints" }

// ensureCheckpointTable creates the metadata table if missing. Separate
// from the schema migration planner: this table is indexer-internal
// bookkeeping, not part of the event-IR-derived target schema.
func ensureCheckpointTable(db *gorm.DB) error {
	if db.Migrator().HasTable(&checkpointRow{}) {
		return nil
	}
	if err := db.AutoMigrate(&checkpointRow{}); err != nil {
		return apperr.Wrap(apperr.KindDb, "create indexer checkpoint table", err)
	}
	return nil
}

// loadCheckpoint returns the last fully-ingested block for a pair, or 0
// if no checkpoint row exists yet.
func loadCheckpoint(db *gorm.DB, chain, contractAddr, eventName string) (uint64, error) {
	var row checkpointRow
	err := db.Where("chain = ? AND contract_address = ? AND event_name = ?", chain, contractAddr, eventName).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.KindDb, "load checkpoint", err)
	}
	return row.LastBlock, nil
}

// saveCheckpointTx upserts the checkpoint to `to` within an existing
// transaction, so the row commits atomically with the rows it covers
// (spec.md §4.5 step 3d / §5 "either all rows and the checkpoint commit
// or none do"). All three primary-key fields are always populated, so
// plain Save would take the Update path and silently affect 0 rows on
// the first write for a pair; ON CONFLICT forces a real upsert.
func saveCheckpointTx(tx *gorm.DB, chain, contractAddr, eventName string, to uint64) error {
	row := checkpointRow{Chain: chain, ContractAddress: contractAddr, EventName: eventName, LastBlock: to}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain"}, {Name: "contract_address"}, {Name: "event_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_block"}),
	}).Create(&row).Error
	if err != nil {
		return apperr.Wrap(apperr.KindDb, "save checkpoint", err)
	}
	return nil
}
