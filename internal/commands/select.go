package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/regioncost/internal/config"
	"github.com/ppiankov/regioncost/internal/store"
)

const accessKeyEnv = "REGIONCOST_ACCESS_KEY"

var selectFlags struct {
	id             string
	region         string
	repo           string
	accessKey      string
	webhookURL     string
	webhookRetries int
	timeout        time.Duration
	store          storeFlags
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Record the region finally chosen and notify the build webhook",
	Long: `Persist a final selection {id, selectedRegion, githubUrl, accessKey} and, when
a webhook is configured, forward it for deployment. Every field is required.

The access key may be supplied through ` + accessKeyEnv + ` instead of --access-key.`,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringVar(&selectFlags.id, "id", "", "User id")
	selectCmd.Flags().StringVar(&selectFlags.region, "region", "", "Selected AWS region")
	selectCmd.Flags().StringVar(&selectFlags.repo, "repo", "", "Repository URL to deploy")
	selectCmd.Flags().StringVar(&selectFlags.accessKey, "access-key", "", "Access key handed to the build (or set "+accessKeyEnv+")")
	selectCmd.Flags().StringVar(&selectFlags.webhookURL, "webhook-url", "", "Forward the selection to this URL")
	selectCmd.Flags().IntVar(&selectFlags.webhookRetries, "webhook-retries", 0, "Webhook retry attempts (default 3, negative disables)")
	selectCmd.Flags().DurationVar(&selectFlags.timeout, "timeout", time.Minute, "Timeout for saving and notifying")
	selectCmd.Flags().StringVar(&selectFlags.store.driver, "store", "", "Store driver: file or sqlite")
	selectCmd.Flags().StringSliceVar(&selectFlags.store.paths, "store-path", nil, "Store directories (file) or database path (sqlite)")
}

func runSelect(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	applySelectConfigDefaults(cfg)

	sel := store.SelectionRecord{
		ID:             selectFlags.id,
		SelectedRegion: selectFlags.region,
		RepoURL:        selectFlags.repo,
		AccessKey:      selectFlags.accessKey,
	}
	if sel.AccessKey == "" {
		sel.AccessKey = os.Getenv(accessKeyEnv)
	}
	if err := sel.Validate(); err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd.Context(), selectFlags.timeout)
	defer cancel()

	st, err := selectFlags.store.open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ref, err := st.SaveSelection(ctx, sel)
	if err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Saved selection %s (%s -> %s)\n", ref, sel.ID, sel.SelectedRegion)

	wh, err := newNotifier(selectFlags.webhookURL, selectFlags.webhookRetries)
	if err != nil {
		return err
	}
	if wh == nil {
		return nil
	}
	if err := wh.Notify(ctx, sel); err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Notified %s\n", wh.URL())
	return nil
}

func applySelectConfigDefaults(cfg config.Config) {
	if selectFlags.webhookURL == "" {
		selectFlags.webhookURL = cfg.Webhook.URL
	}
	if selectFlags.webhookRetries == 0 && cfg.Webhook.Retries != 0 {
		selectFlags.webhookRetries = cfg.Webhook.Retries
	}
}
