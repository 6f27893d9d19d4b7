package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run exactly one synchronization cycle",
	Long: `Runs one scan/extract/merge/validate/persist cycle and exits.
The exit code is non-zero when the cycle failed or the candidate graph was
rejected by the validator.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		st, err := a.sched.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		if st.ConsecutiveErrors > 0 {
			return fmt.Errorf("cycle failed (see log)")
		}
		fmt.Printf("revision %s, %d updates applied, %d steps pending review\n",
			st.LastRevision, st.UpdatesApplied, st.PendingReviewTotal)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
