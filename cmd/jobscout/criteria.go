package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/model"
)

// criteriaFlags are the search flags shared by `search` and `searches add`.
type criteriaFlags struct {
	keywords    string
	location    string
	jobTypes    []string
	remoteTypes []string
	recency     string
	filterText  string
}

func (f *criteriaFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.keywords, "keywords", "k", "", "search keywords (required)")
	cmd.Flags().StringVarP(&f.location, "location", "l", "", "location, e.g. \"Berlin\" or \"Remote\"")
	cmd.Flags().StringSliceVar(&f.jobTypes, "job-types", nil, "comma-separated: full-time,part-time,contract,temporary,internship,volunteer,other")
	cmd.Flags().StringSliceVar(&f.remoteTypes, "remote", nil, "comma-separated: on-site,remote,hybrid")
	cmd.Flags().StringVar(&f.recency, "recency", "past-week", "any, past-24h, past-week or past-month")
	cmd.Flags().StringVar(&f.filterText, "filter", "", "free-text preferences for the LLM, e.g. \"no clearance roles\"")
	_ = cmd.MarkFlagRequired("keywords")
}

// criteria parses the flags into validated search criteria.
func (f *criteriaFlags) criteria() (model.SearchCriteria, error) {
	jobTypes, err := model.ParseJobTypes(f.jobTypes)
	if err != nil {
		return model.SearchCriteria{}, fmt.Errorf("--job-types: %w", err)
	}
	remoteTypes, err := model.ParseRemoteTypes(f.remoteTypes)
	if err != nil {
		return model.SearchCriteria{}, fmt.Errorf("--remote: %w", err)
	}
	recency, err := model.ParseRecency(f.recency)
	if err != nil {
		return model.SearchCriteria{}, fmt.Errorf("--recency: %w", err)
	}

	c := model.SearchCriteria{
		Keywords:    f.keywords,
		Location:    f.location,
		JobTypes:    jobTypes,
		RemoteTypes: remoteTypes,
		Recency:     recency,
		FilterText:  f.filterText,
	}
	if err := c.Validate(); err != nil {
		return model.SearchCriteria{}, err
	}
	return c, nil
}
