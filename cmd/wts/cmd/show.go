package cmd

import (
	"fmt"
	"time"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// commitView is the printable form of a commit record.
type commitView struct {
	Hash      string      `json:"hash" yaml:"hash"`
	CID       string      `json:"cid" yaml:"cid"`
	Parent    string      `json:"parent,omitempty" yaml:"parent,omitempty"`
	Timestamp string      `json:"timestamp" yaml:"timestamp"`
	Date      string      `json:"date" yaml:"date"`
	Message   string      `json:"message" yaml:"message"`
	Metadata  interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func newCommitView(c *dag.Commit) commitView {
	v := commitView{
		Hash:      c.Hash.String(),
		CID:       c.Hash.CIDString(),
		Timestamp: c.Timestamp.String(),
		Date:      c.Timestamp.Format(time.RFC3339Nano),
		Message:   c.Message,
		Metadata:  c.Metadata,
	}
	if p, ok := c.Parent(); ok {
		v.Parent = p.String()
	}
	return v
}

func newShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show [rev]",
		Short: "Show a commit record",
		Long:  `Print the commit record a revision resolves to. rev defaults to HEAD.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			d, err := resolveRev(repo, args)
			if err != nil {
				return err
			}
			commit, err := repo.GetCommit(d)
			if err != nil {
				return err
			}

			view := newCommitView(commit)
			var data []byte
			switch format {
			case "yaml":
				data, err = yaml.Marshal(view)
			case "json":
				data, err = jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(view, "", "  ")
				data = append(data, '\n')
			default:
				return fmt.Errorf("unknown output format %q: expected yaml or json", format)
			}
			if err != nil {
				return err
			}
			_, err = out(cmd).Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format: yaml or json")
	return cmd
}
