// Package wizard implements the multi-step onboarding flow: step tables,
// the step sequencer, session persistence, and submission.
//
// A wizard variant is pure configuration: an ordered table of steps, each
// with a validator gating advancement and a relaxed has-data predicate used
// for session resume. The engine is shared; variants differ only in data.
package wizard

import (
	"fmt"

	"github.com/getemily/emily-api/internal/models"
)

// Form field names. The vocabulary is fixed; a variant's defaults decide
// which of these exist for its sessions.
const (
	FieldBusinessName      = "business_name"
	FieldBusinessType      = "business_type"
	FieldIndustry          = "industry"
	FieldWebsite           = "website"
	FieldAboutBusiness     = "about_business"
	FieldAudienceB2B       = "audience_b2b"
	FieldAudienceB2C       = "audience_b2c"
	FieldAudienceNonprofit = "audience_nonprofit"
	FieldBrandVoice        = "brand_voice"
	FieldMarketingGoals    = "marketing_goals"
	FieldChannels          = "channels"
	FieldPlatformDetails   = "platform_details"
	FieldAutoPublish       = "auto_publish"
)

// StepDefinition is one row of a variant's step table.
type StepDefinition struct {
	Name string
	// Validate gates advancement past this step.
	Validate func(models.FormAnswers) bool
	// HasData is the relaxed predicate used by the resume scan: any of the
	// step's fields populated, full validity not required.
	HasData func(models.FormAnswers) bool
}

// Definition is a complete wizard variant: its step table, default answers,
// and whether finishing the connections phase requires a linked platform.
type Definition struct {
	Variant           models.WizardVariant
	Steps             []StepDefinition
	RequireConnection bool
	defaults          models.FormAnswers
}

// Defaults returns a fresh copy of the variant's default answers.
func (d *Definition) Defaults() models.FormAnswers {
	return d.defaults.Clone()
}

// LastStep returns the index of the terminal review step.
func (d *Definition) LastStep() int {
	return len(d.Steps) - 1
}

// alwaysValid is the terminal review step's validator; submission readiness
// is gated separately on all prior steps being complete.
func alwaysValid(models.FormAnswers) bool { return true }

func noData(models.FormAnswers) bool { return false }

var onboardingDefinition = &Definition{
	Variant:           models.VariantOnboarding,
	RequireConnection: true,
	defaults: models.FormAnswers{
		FieldBusinessName:      models.TextValue(""),
		FieldBusinessType:      models.OptionsValue(),
		FieldIndustry:          models.OptionsValue(),
		FieldWebsite:           models.TextValue(""),
		FieldAboutBusiness:     models.TextValue(""),
		FieldAudienceB2B:       models.OptionsValue(),
		FieldAudienceB2C:       models.OptionsValue(),
		FieldAudienceNonprofit: models.OptionsValue(),
		FieldBrandVoice:        models.OptionsValue(),
		FieldMarketingGoals:    models.OptionsValue(),
		FieldChannels:          models.OptionsValue(),
		FieldPlatformDetails:   models.NestedValue(nil),
		FieldAutoPublish:       models.FlagValue(false),
	},
	Steps: []StepDefinition{
		{
			Name: "Basic Business Info",
			Validate: func(a models.FormAnswers) bool {
				return a.AllPresent(FieldBusinessName, FieldBusinessType, FieldIndustry)
			},
			HasData: func(a models.FormAnswers) bool {
				return a.AnyPresent(FieldBusinessName, FieldBusinessType, FieldIndustry, FieldWebsite, FieldAboutBusiness)
			},
		},
		{
			Name: "Target Audience",
			Validate: func(a models.FormAnswers) bool {
				return a.AnyPresent(FieldAudienceB2B, FieldAudienceB2C, FieldAudienceNonprofit)
			},
			HasData: func(a models.FormAnswers) bool {
				return a.AnyPresent(FieldAudienceB2B, FieldAudienceB2C, FieldAudienceNonprofit)
			},
		},
		{
			Name: "Brand & Goals",
			Validate: func(a models.FormAnswers) bool {
				return a.AllPresent(FieldBrandVoice, FieldMarketingGoals)
			},
			HasData: func(a models.FormAnswers) bool {
				return a.AnyPresent(FieldBrandVoice, FieldMarketingGoals)
			},
		},
		{
			Name: "Marketing Channels",
			Validate: func(a models.FormAnswers) bool {
				return a.AllPresent(FieldChannels)
			},
			HasData: func(a models.FormAnswers) bool {
				return a.AnyPresent(FieldChannels, FieldPlatformDetails, FieldAutoPublish)
			},
		},
		{
			Name:     "Review & Submit",
			Validate: alwaysValid,
			HasData:  noData,
		},
	},
}

var expressDefinition = &Definition{
	Variant:           models.VariantExpress,
	RequireConnection: false,
	defaults: models.FormAnswers{
		FieldBusinessName:    models.TextValue(""),
		FieldBusinessType:    models.OptionsValue(),
		FieldIndustry:        models.OptionsValue(),
		FieldWebsite:         models.TextValue(""),
		FieldChannels:        models.OptionsValue(),
		FieldPlatformDetails: models.NestedValue(nil),
		FieldAutoPublish:     models.FlagValue(false),
	},
	Steps: []StepDefinition{
		{
			Name: "Business Basics",
			Validate: func(a models.FormAnswers) bool {
				return a.AllPresent(FieldBusinessName)
			},
			HasData: func(a models.FormAnswers) bool {
				return a.AnyPresent(FieldBusinessName, FieldBusinessType, FieldIndustry, FieldWebsite)
			},
		},
		{
			Name: "Marketing Channels",
			Validate: func(a models.FormAnswers) bool {
				return a.AllPresent(FieldChannels)
			},
			HasData: func(a models.FormAnswers) bool {
				return a.AnyPresent(FieldChannels, FieldPlatformDetails, FieldAutoPublish)
			},
		},
		{
			Name:     "Review & Submit",
			Validate: alwaysValid,
			HasData:  noData,
		},
	},
}

var definitions = map[models.WizardVariant]*Definition{
	models.VariantOnboarding: onboardingDefinition,
	models.VariantExpress:    expressDefinition,
}

// Lookup returns the Definition for a variant.
func Lookup(variant models.WizardVariant) (*Definition, error) {
	def, ok := definitions[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownVariant, variant)
	}
	return def, nil
}

// HighestStepWithData scans the step table from the last step backward and
// returns the largest index whose HasData predicate passes, or -1 when the
// session is empty.
func (d *Definition) HighestStepWithData(a models.FormAnswers) int {
	for i := d.LastStep(); i >= 0; i-- {
		if d.Steps[i].HasData(a) {
			return i
		}
	}
	return -1
}
