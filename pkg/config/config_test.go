package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teleshop/paygate/pkg/types"
)

func validConfig() *Config {
	return &Config{
		Click: ClickConfig{
			ServiceID:      777,
			MerchantID:     12,
			MerchantUserID: 42,
			SecretKey:      "topsecret",
			Endpoints:      []string{"https://api.click.uz/v2/merchant"},
			Variant:        types.CallbackVariantRedirect,
		},
		Auth:  AuthConfig{JWTSecret: "s3cret"},
		Plans: []*types.Plan{{ID: "pro_month", Price: 50000, DurationDays: 30}},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_RejectsPaddedSecret(t *testing.T) {
	c := validConfig()
	c.Click.SecretKey = "topsecret\n"
	require.Error(t, Validate(c))
}

func TestValidate_RequiresCredentials(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Click.ServiceID = 0 },
		func(c *Config) { c.Click.MerchantID = 0 },
		func(c *Config) { c.Click.MerchantUserID = 0 },
		func(c *Config) { c.Click.SecretKey = "" },
		func(c *Config) { c.Auth.JWTSecret = "" },
	} {
		c := validConfig()
		mutate(c)
		require.Error(t, Validate(c))
	}
}

func TestValidate_RequiresAbsoluteEndpointURLs(t *testing.T) {
	c := validConfig()
	c.Click.Endpoints = []string{"api.click.uz/v2/merchant"}
	require.Error(t, Validate(c))

	c.Click.Endpoints = nil
	require.Error(t, Validate(c))
}

func TestValidate_RejectsUnknownVariant(t *testing.T) {
	c := validConfig()
	c.Click.Variant = "sms"
	require.Error(t, Validate(c))
}

func TestValidate_RejectsIncompletePlan(t *testing.T) {
	c := validConfig()
	c.Plans = []*types.Plan{{ID: "broken", Price: 0, DurationDays: 30}}
	require.Error(t, Validate(c))

	c.Plans = nil
	require.Error(t, Validate(c))
}

func TestGetPlanByID(t *testing.T) {
	c := validConfig()
	require.NotNil(t, c.GetPlanByID("pro_month"))
	require.Nil(t, c.GetPlanByID("nope"))
}
