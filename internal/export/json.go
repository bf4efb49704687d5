package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mvrcel/stride/internal/ledger"
	"github.com/mvrcel/stride/internal/store"
)

type jsonExport struct {
	ExportedAt  string           `json:"exported_at"`
	Todos       []store.Todo     `json:"todos"`
	Redemptions []jsonRedemption `json:"redemptions"`
	Overages    []jsonOverage    `json:"overages"`
}

type jsonRedemption struct {
	ItemType string `json:"item_type"`
	At       string `json:"at"`
	Quantity int    `json:"quantity"`
}

type jsonOverage struct {
	ItemType string `json:"item_type"`
	At       string `json:"at"`
}

func ToJSON(todos []store.Todo, redemptions []ledger.Redemption, overages []ledger.Overage, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Todos:      todos,
	}

	for _, r := range redemptions {
		export.Redemptions = append(export.Redemptions, jsonRedemption{
			ItemType: r.ItemType,
			At:       r.At.Local().Format(time.RFC3339),
			Quantity: r.Quantity,
		})
	}
	for _, o := range overages {
		export.Overages = append(export.Overages, jsonOverage{
			ItemType: o.ItemType,
			At:       o.At.Local().Format(time.RFC3339),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
