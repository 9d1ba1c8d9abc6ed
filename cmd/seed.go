package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cotyar/tagstream/codec"
	"github.com/cotyar/tagstream/event"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Append test events to the journal",
	Long: `Appends a batch of events under a tag, encoded with the configured codec.
Each invocation writes one entity (a fresh UUID) with sequence numbers 1..count.
Useful for smoke-testing serve and tail.`,
	RunE: runSeed,
}

func init() {
	f := seedCmd.Flags()

	f.StringP("tag", "t", "", "tag to append under (required)")
	f.IntP("count", "n", 10, "number of events to append")
	f.String("payload", `{"seeded":true}`, "JSON payload for every event")

	_ = seedCmd.MarkFlagRequired("tag")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	tag, _ := cmd.Flags().GetString("tag")
	count, _ := cmd.Flags().GetInt("count")
	payload, _ := cmd.Flags().GetString("payload")

	if !json.Valid([]byte(payload)) {
		return fmt.Errorf("payload is not valid JSON: %s", payload)
	}

	ctx := cmd.Context()
	store, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	codecType, err := codec.ParseType(cfg.Codec)
	if err != nil {
		return err
	}

	var avroDec *codec.AvroDecoder
	if codecType == codec.TypeAvro {
		if avroDec, err = codec.NewAvroDecoder(); err != nil {
			return err
		}
	}

	entityID := uuid.NewString()
	var first, last uint64
	for i := 1; i <= count; i++ {
		r := event.Repr{
			EntityID:   entityID,
			SequenceNr: uint64(i),
			Payload:    json.RawMessage(payload),
		}

		var encoded []byte
		if avroDec != nil {
			encoded, err = avroDec.EncodeAvro(r)
		} else {
			encoded, err = codec.EncodeJSON(r)
		}
		if err != nil {
			return err
		}

		ordering, err := store.Append(ctx, tag, encoded)
		if err != nil {
			return err
		}
		if i == 1 {
			first = ordering
		}
		last = ordering
	}

	fmt.Fprintf(cmd.OutOrStdout(), "appended %d events to tag %q (entity %s, offsets %d..%d)\n",
		count, tag, entityID, first, last)
	return nil
}
