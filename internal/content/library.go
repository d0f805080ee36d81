// Package content loads the rule content shared by every binary: condition
// definitions, equipment, formula helpers and creature templates.
package content

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/config"
	"github.com/cory-johannsen/tabletop/internal/game/bestiary"
	"github.com/cory-johannsen/tabletop/internal/game/condition"
	"github.com/cory-johannsen/tabletop/internal/game/inventory"
	"github.com/cory-johannsen/tabletop/internal/scripting"
)

// Library is the loaded content of one content directory.
type Library struct {
	Conditions  *condition.Registry
	Armory      *inventory.Registry
	Formulas    *scripting.FormulaEvaluator
	Bestiary    *bestiary.Bestiary
	Encumbrance inventory.Mode
}

// Load reads every content subdirectory named by cfg.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a ready Library or a non-nil error; the caller must
// call Close.
func Load(cfg config.EngineConfig, logger *zap.Logger) (*Library, error) {
	start := time.Now()

	mode, err := inventory.ParseMode(cfg.EncumbranceMode)
	if err != nil {
		return nil, err
	}

	conds, err := condition.LoadDirectory(cfg.ConditionsDir())
	if err != nil {
		return nil, fmt.Errorf("loading condition definitions: %w", err)
	}
	logger.Info("loaded condition definitions", zap.Int("count", len(conds.All())))

	armory, err := inventory.LoadRegistry(cfg.EquipmentDir())
	if err != nil {
		return nil, fmt.Errorf("loading equipment: %w", err)
	}

	formulas := scripting.NewFormulaEvaluator(cfg.FormulaInstructionLimit, logger)
	if err := formulas.LoadLibrary(cfg.FormulasDir()); err != nil {
		formulas.Close()
		return nil, fmt.Errorf("loading formula library: %w", err)
	}

	templates, err := bestiary.LoadTemplates(cfg.CreaturesDir())
	if err != nil {
		formulas.Close()
		return nil, fmt.Errorf("loading creature templates: %w", err)
	}
	beasts, err := bestiary.New(templates, armory, formulas)
	if err != nil {
		formulas.Close()
		return nil, err
	}

	logger.Info("content loaded",
		zap.String("dir", cfg.ContentDir),
		zap.Int("creatures", len(templates)),
		zap.Stringer("encumbrance", mode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Library{
		Conditions:  conds,
		Armory:      armory,
		Formulas:    formulas,
		Bestiary:    beasts,
		Encumbrance: mode,
	}, nil
}

// Close releases the formula VM.
func (l *Library) Close() {
	l.Formulas.Close()
}
