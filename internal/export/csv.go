package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/mvrcel/stride/internal/ledger"
)

// RedemptionsToCSV writes the redemption log with each item's remaining
// quota annotated from the derived view.
func RedemptionsToCSV(redemptions []ledger.Redemption, view ledger.View, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Item", "Redeemed At", "Quantity", "Remaining Now"}); err != nil {
		return err
	}

	remaining := map[string]int{}
	for _, group := range [][]ledger.ItemStatus{view.Available, view.Unavailable} {
		for _, st := range group {
			remaining[st.Type] = st.Remaining
		}
	}

	for _, r := range redemptions {
		row := []string{
			r.ItemType,
			r.At.Local().Format(time.RFC3339),
			fmt.Sprintf("%d", r.Quantity),
			fmt.Sprintf("%d", remaining[r.ItemType]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}
