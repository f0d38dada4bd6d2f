package internal

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goplus/recipe/internal/pipeline"
	"github.com/goplus/recipe/recipe"
)

var planCmd = &cobra.Command{
	Use:   "plan [flann@]version",
	Short: "Prepare the sources of a version and print the build plan",
	Long: `Plan fetches, patches and rewrites the sources of a version, then prints
the definitions, requirements and expected libraries without building.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

// planReport is the printed form of a plan.
type planReport struct {
	Version      string            `yaml:"version"`
	Origin       string            `yaml:"origin"`
	URL          string            `yaml:"url"`
	SourceDir    string            `yaml:"source_dir"`
	Platform     string            `yaml:"platform"`
	Options      string            `yaml:"options"`
	Patch        string            `yaml:"patch,omitempty"`
	ToolVersion  string            `yaml:"tool_version"`
	Placeholder  string            `yaml:"placeholder,omitempty"`
	Wrapped      bool              `yaml:"wrapped"`
	Definitions  map[string]string `yaml:"definitions"`
	Requirements []string          `yaml:"requirements,omitempty"`
	Artifacts    []string          `yaml:"artifacts"`
}

func newPlanReport(plan *pipeline.Plan) planReport {
	rep := planReport{
		Version:     plan.Version,
		Origin:      plan.Tree.Origin.String(),
		URL:         plan.Tree.URL,
		SourceDir:   plan.Tree.Root,
		Platform:    plan.Platform.String(),
		Options:     plan.Options.String(),
		ToolVersion: plan.Rewrite.ToolVersion,
		Placeholder: plan.Rewrite.Placeholder,
		Wrapped:     plan.Rewrite.Wrapped,
		Definitions: plan.Definitions,
		Artifacts:   plan.Artifacts,
	}
	if plan.Patch.Path != "" {
		rep.Patch = filepath.Base(plan.Patch.Path)
	}
	for _, req := range plan.Requirements {
		rep.Requirements = append(rep.Requirements, req.String())
	}
	return rep
}

func runPlan(cmd *cobra.Command, args []string) error {
	r := recipe.Flann()
	version, err := versionArg(r, args)
	if err != nil {
		return err
	}
	req, err := newRequest(r, version)
	if err != nil {
		return err
	}
	p, err := newPipeline(r)
	if err != nil {
		return err
	}
	plan, err := p.Prepare(cmd.Context(), req)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(newPlanReport(plan))
}
