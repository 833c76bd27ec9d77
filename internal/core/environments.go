package core

// Environment names the downstream deployments a mock flow can target.
type Environment string

const (
	EnvLocal Environment = "local"
	EnvDev   Environment = "dev"
	EnvStage Environment = "stage"
	EnvIAT   Environment = "iat"
	EnvUAT   Environment = "uat"
	EnvProd  Environment = "prod"
)

// Environments lists every supported target environment.
var Environments = []Environment{EnvLocal, EnvDev, EnvStage, EnvIAT, EnvUAT, EnvProd}

// Default key accepted by the lower-environment eligibility stores.
// Overridable via AG_API_KEY; uat/prod have no mock store at all.
const defaultEligibilityAPIKey = "e020b2a6-30af-46f6-9524-c33dc0598461"

const (
	acsPath             = "/api/sso/saml/wfhMock"
	mockEligibilityPath = "/api/mock-eligibility"
)

// ProductionACS is the one destination that requires an authenticated
// operator session before an assertion may be issued for it.
const ProductionACS = "https://anthem.buildinghealthyfamilies.ai" + acsPath

// SAMLEnvironment is a single entry of the per-environment lookup
// table: where the relying party consumes assertions, which audience
// it expects, and (for lower environments) where mock eligibility
// records can be stored.
type SAMLEnvironment struct {
	ACS             string
	Audience        string
	MockEligibility string
	APIKey          string
}

// EnvironmentTable builds the read-only environment lookup table.
// apiKey is stamped onto every environment that has a mock
// eligibility store.
func EnvironmentTable(apiKey string) map[Environment]SAMLEnvironment {
	return map[Environment]SAMLEnvironment{
		EnvLocal: {
			ACS:             "http://127.0.0.1:3005" + acsPath,
			Audience:        "com.wildflowerhealth.saml.dev",
			MockEligibility: "http://127.0.0.1:3005" + mockEligibilityPath,
			APIKey:          apiKey,
		},
		EnvDev: {
			ACS:             "https://anthem.dev.wildflowerhealth.digital" + acsPath,
			Audience:        "com.wildflowerhealth.saml.dev",
			MockEligibility: "https://anthem.dev.wildflowerhealth.digital" + mockEligibilityPath,
			APIKey:          apiKey,
		},
		EnvStage: {
			ACS:             "https://anthem.stage.wildflowerhealth.digital" + acsPath,
			Audience:        "com.wildflowerhealth.saml.staging",
			MockEligibility: "https://anthem.stage.wildflowerhealth.digital" + mockEligibilityPath,
			APIKey:          apiKey,
		},
		EnvIAT: {
			ACS:             "https://anthem.iat.wildflowerhealth.digital" + acsPath,
			Audience:        "com.wildflowerhealth.saml.iat",
			MockEligibility: "https://anthem.iat.wildflowerhealth.digital" + mockEligibilityPath,
			APIKey:          apiKey,
		},
		EnvUAT: {
			ACS:      "https://anthem-staging.buildinghealthyfamilies.ai" + acsPath,
			Audience: "com.wildflowerhealth.saml.uat",
		},
		EnvProd: {
			ACS:      ProductionACS,
			Audience: "com.wildflowerhealth.saml.production",
		},
	}
}
