package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/market-intel/internal/editor"
	"github.com/sells-group/market-intel/internal/filter"
	"github.com/sells-group/market-intel/internal/model"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List and edit market records",
}

// -- records list --

var listState filter.State

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records, optionally filtered",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()
		return listRecords(cmd.Context(), env.Editor, listState, os.Stdout)
	},
}

// addFilterFlags binds the record filter flags to st.
func addFilterFlags(f *pflag.FlagSet, st *filter.State) {
	f.StringVar(&st.Counterparty, "counterparty", "", "counterparty")
	f.StringVar(&st.PointType, "point-type", "", "point type")
	f.StringVar(&st.PointName, "point-name", "", "point name")
	f.StringSliceVar(&st.Tags, "tags", nil, "keep records carrying any of these tags")
	f.StringVarP(&st.Query, "query", "q", "", "case-insensitive text search")
	f.StringVar(&st.DateFrom, "from", "", "keep records whose period ends on or after this date")
	f.StringVar(&st.DateTo, "to", "", "keep records whose period starts on or before this date")
}

func listRecords(ctx context.Context, ed *editor.Service, st filter.State, w io.Writer) error {
	view, err := ed.View(ctx, st)
	if err != nil {
		return err
	}
	if len(view.Records) == 0 && outputFormat == "table" {
		fmt.Fprintln(os.Stderr, "No records found.")
		return nil
	}
	return render(w, outputFormat, view.Records, recordsTable(view.Records))
}

// -- records add / edit --

var recordsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a record",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		in, err := inputFromFlags(cmd.Flags(), editor.Input{})
		if err != nil {
			return err
		}
		rec, err := env.Editor.Add(cmd.Context(), in, actor())
		if err != nil {
			return err
		}
		return render(os.Stdout, outputFormat, rec, recordsTable([]model.Record{*rec}))
	},
}

var recordsEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Change a record; unset flags keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := editRecord(cmd.Context(), env.Editor, args[0], cmd.Flags())
		if err != nil {
			return err
		}
		return render(os.Stdout, outputFormat, rec, recordsTable([]model.Record{*rec}))
	},
}

func editRecord(ctx context.Context, ed *editor.Service, key string, flags *pflag.FlagSet) (*model.Record, error) {
	records, err := ed.Records(ctx)
	if err != nil {
		return nil, err
	}
	i := model.IndexOf(records, key)
	if i < 0 {
		return nil, editor.ErrNotFound
	}
	in, err := inputFromFlags(flags, editor.InputFrom(records[i]))
	if err != nil {
		return nil, err
	}
	return ed.Edit(ctx, key, in, actor())
}

func addInputFlags(fs *pflag.FlagSet) {
	fs.String("name", "", "record name (unique)")
	fs.String("counterparty", "", "counterparty")
	fs.String("country", "", "country")
	fs.String("point-type", "", "Virtual Point, Crossborder Point, Storage or Entire Country")
	fs.String("point-name", "", "point name")
	fs.String("date", "", "single day (YYYY-MM-DD)")
	fs.String("from", "", "range start (YYYY-MM-DD)")
	fs.String("to", "", "range end (YYYY-MM-DD)")
	fs.String("tenor", "", "period code from the generated list, e.g. CAL25")
	fs.String("custom", "", "any other period code; wins over --tenor")
	fs.String("info", "", "free text")
	fs.String("capacity", "", "capacity value")
	fs.String("capacity-unit", "", "capacity unit")
	fs.String("volume", "", "volume value")
	fs.String("volume-unit", "", "volume unit")
	fs.StringSlice("tags", nil, "tags, comma separated")
}

// inputFromFlags overlays the flags that were set onto base.
func inputFromFlags(fs *pflag.FlagSet, base editor.Input) (editor.Input, error) {
	in := base
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	str("name", &in.Name)
	str("counterparty", &in.Counterparty)
	str("country", &in.Country)
	str("point-name", &in.PointName)
	str("info", &in.Info)
	str("capacity-unit", &in.Capacity.Unit)
	str("volume-unit", &in.Volume.Unit)

	if fs.Changed("point-type") {
		v, _ := fs.GetString("point-type")
		in.PointType = model.PointType(v)
	}
	if fs.Changed("capacity") {
		v, _ := fs.GetString("capacity")
		in.Capacity.Value = json.Number(v)
	}
	if fs.Changed("volume") {
		v, _ := fs.GetString("volume")
		in.Volume.Value = json.Number(v)
	}
	if fs.Changed("tags") {
		tags, err := fs.GetStringSlice("tags")
		if err != nil {
			return in, err
		}
		in.Tags = tags
	}

	// Any period flag replaces the whole period.
	period := editor.PeriodInput{}
	changed := false
	for name, dst := range map[string]*string{
		"date": &period.Date, "from": &period.From, "to": &period.To,
		"tenor": &period.Tenor, "custom": &period.Custom,
	} {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
			changed = true
		}
	}
	if changed {
		in.Period = period
	}
	return in, nil
}

// -- records delete / comment --

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Editor.Delete(cmd.Context(), args[0], actor()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Deleted %s.\n", args[0])
		return nil
	},
}

var recordsCommentCmd = &cobra.Command{
	Use:   "comment <name> <text>",
	Short: "Add a comment to a record's history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		entry, err := env.Editor.Comment(cmd.Context(), args[0], args[1], actor())
		if err != nil {
			return err
		}
		return render(os.Stdout, outputFormat, entry, historyTable([]model.AuditEntry{*entry}))
	},
}

func init() {
	addFilterFlags(recordsListCmd.Flags(), &listState)

	addInputFlags(recordsAddCmd.Flags())
	addInputFlags(recordsEditCmd.Flags())

	recordsCmd.AddCommand(recordsListCmd, recordsAddCmd, recordsEditCmd, recordsDeleteCmd, recordsCommentCmd)
	rootCmd.AddCommand(recordsCmd)
}
