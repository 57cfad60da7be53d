package coach

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

type uiModelPersistenceData struct {
	Sport    string `json:"sport"`
	LangPref string `json:"lang_pref"`
}

type uiModelPersistence struct {
	filePath string
	data     uiModelPersistenceData
	logger   logrus.FieldLogger
}

// newUIModelPersistence loads filePath, defaulting to ~/.coach/ui_state.json.
func newUIModelPersistence(filePath string, logger logrus.FieldLogger) *uiModelPersistence {
	if filePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		filePath = filepath.Join(homeDir, ".coach", "ui_state.json")
	}
	p := &uiModelPersistence{
		filePath: filePath,
		logger:   logger,
	}
	p.load()
	return p
}

func (p *uiModelPersistence) getSport() string {
	return p.data.Sport
}

func (p *uiModelPersistence) setSport(sport string) {
	p.logger.Debugf("UIModelPersistence: setSport -> %q", sport)
	p.data.Sport = sport
	p.save()
}

func (p *uiModelPersistence) getLangPref() string {
	return p.data.LangPref
}

func (p *uiModelPersistence) setLangPref(pref string) {
	p.logger.Debugf("UIModelPersistence: setLangPref -> %q", pref)
	p.data.LangPref = pref
	p.save()
}

func (p *uiModelPersistence) load() {
	p.data = uiModelPersistenceData{}
	raw, err := os.ReadFile(p.filePath)
	if err != nil {
		p.logger.Debugf("UIModelPersistence: load %s (no existing file)", p.filePath)
		return
	}
	if err := json.Unmarshal(raw, &p.data); err != nil {
		p.logger.Warnf("UIModelPersistence: load %s failed to parse: %v", p.filePath, err)
		p.data = uiModelPersistenceData{}
		return
	}
	p.logger.Debugf("UIModelPersistence: load %s -> %+v", p.filePath, p.data)
}

func (p *uiModelPersistence) save() {
	if err := os.MkdirAll(filepath.Dir(p.filePath), 0755); err != nil {
		p.logger.Warnf("UIModelPersistence: save mkdir failed: %v", err)
		return
	}
	raw, err := json.MarshalIndent(p.data, "", "  ")
	if err != nil {
		p.logger.Warnf("UIModelPersistence: save marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(p.filePath, raw, 0644); err != nil {
		p.logger.Warnf("UIModelPersistence: save %s failed: %v", p.filePath, err)
		return
	}
	p.logger.Debugf("UIModelPersistence: save %s -> %+v", p.filePath, p.data)
}
