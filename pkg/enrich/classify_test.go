package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/threatradar/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestAggregateTextFieldSets(t *testing.T) {
	t.Parallel()

	rec := &models.Record{
		Name:        "Name",
		Description: "Desc",
		Tags:        []string{"TagA", "TagB"},
		Indicators: []models.Indicator{
			{Title: "T1", Description: "D1", Role: strPtr("Role1")},
			{Title: "T2", Description: "D2"},
		},
	}

	tests := []struct {
		name string
		fs   FieldSet
		want string
	}{
		{"with role", FieldsWithRole, "name desc taga tagb t1 d1 role1 t2 d2 "},
		{"without role", FieldsWithoutRole, "name desc taga tagb t1 d1 t2 d2"},
		{"record only", FieldsRecordOnly, "name desc taga tagb"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, AggregateText(rec, tc.fs))
		})
	}
}

func TestClassifyAttackTypesOrderAndDedup(t *testing.T) {
	t.Parallel()

	rec := &models.Record{
		Name:        "Trojan dropper delivers ransomware",
		Description: "The CryptoLocker encryptor spreads as a worm",
	}

	got := ClassifyAttackTypes(rec)

	// Table order, not text order; each category once.
	assert.Equal(t, []models.AttackType{
		models.AttackTypeRansomware,
		models.AttackTypeMalware,
		models.AttackTypeTrojan,
	}, got)
}

func TestClassifyAttackTypesUnknown(t *testing.T) {
	t.Parallel()

	got := ClassifyAttackTypes(&models.Record{Name: "quarterly report"})
	assert.Equal(t, []models.AttackType{models.AttackTypeUnknown}, got)
}

func TestClassifySubstringMatching(t *testing.T) {
	t.Parallel()

	// "dos" matches inside "kudos"; matching has no word boundaries.
	got := ClassifyAttackTypes(&models.Record{Description: "Kudos to the operators"})
	assert.Equal(t, []models.AttackType{models.AttackTypeDdos}, got)

	got = ClassifyAttackTypes(&models.Record{Description: "Targets Windows hosts"})
	assert.Equal(t, []models.AttackType{models.AttackTypeUnknown}, got)
}

func TestClassifyRoleOnlyAffectsTypesAndTargets(t *testing.T) {
	t.Parallel()

	rec := &models.Record{
		Name: "sample",
		Indicators: []models.Indicator{
			{Role: strPtr("phishing backend")},
		},
	}

	assert.Equal(t, []models.AttackType{models.AttackTypePhishing}, ClassifyAttackTypes(rec))
	assert.Equal(t, []models.Target{models.TargetInfrastructure}, ClassifyTargets(rec))
	assert.Equal(t, []models.AttackVector{models.AttackVectorUnknown}, ClassifyAttackVectors(rec))
}

func TestClassifyAttackVectors(t *testing.T) {
	t.Parallel()

	rec := &models.Record{
		Name: "Supply chain compromise",
		Tags: []string{"AWS", "MITM"},
		Indicators: []models.Indicator{
			{Title: "Spoofing portal"},
		},
	}

	assert.Equal(t, []models.AttackVector{
		models.AttackVectorEmail,
		models.AttackVectorNetwork,
		models.AttackVectorCloudService,
		models.AttackVectorSupplyChain,
	}, ClassifyAttackVectors(rec))
}

func TestClassifyUrgencyActivity(t *testing.T) {
	t.Parallel()

	active := func(flags ...uint8) []models.Indicator {
		out := make([]models.Indicator, 0, len(flags))
		for _, f := range flags {
			out = append(out, models.Indicator{IsActive: f})
		}

		return out
	}

	tests := []struct {
		name       string
		indicators []models.Indicator
		want       models.Urgency
	}{
		{"no indicators", nil, models.UrgencyCold},
		{"net positive", active(1, 1, 0), models.UrgencyHot},
		{"balanced", active(1, 0), models.UrgencyCold},
		{"net negative", active(0, 0, 1), models.UrgencyCold},
		{"non one counts as inactive", active(2, 2), models.UrgencyCold},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ClassifyUrgency(&models.Record{Indicators: tc.indicators})
			assert.Equal(t, tc.want, got.Activity)
			assert.Equal(t, models.UrgencyLow, got.Severity)
		})
	}
}

func TestClassifyUrgencySeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  models.Record
		want models.Urgency
	}{
		{"default low", models.Record{Name: "nothing"}, models.UrgencyLow},
		{"critical", models.Record{Description: "A severe campaign"}, models.UrgencyCritical},
		{"medium", models.Record{Tags: []string{"Moderate"}}, models.UrgencyMedium},
		{"last in table order wins", models.Record{Description: "critical but minor"}, models.UrgencyLow},
		{"medium after critical", models.Record{Description: "urgent, average impact"}, models.UrgencyMedium},
		{"activity keywords ignored", models.Record{Description: "hot and ongoing"}, models.UrgencyLow},
		{
			"indicator text ignored",
			models.Record{Indicators: []models.Indicator{{Title: "critical", IsActive: 1}}},
			models.UrgencyLow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ClassifyUrgency(&tc.rec)
			assert.Equal(t, tc.want, got.Severity)
			assert.True(t, got.Severity.IsSeverity())
			assert.True(t, got.Activity.IsActivity())
		})
	}
}

func TestResolveLocations(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{UnknownLocation}, ResolveLocations(&models.Record{}))

	countries := []string{"Germany", "United States", "Germany"}
	got := ResolveLocations(&models.Record{TargetedCountries: countries})
	assert.Equal(t, countries, got)

	got[0] = "mutated"
	assert.Equal(t, "Germany", countries[0])
}

func TestResolveExpiration(t *testing.T) {
	t.Parallel()

	var skipped []string

	rec := &models.Record{
		Indicators: []models.Indicator{
			{Expiration: strPtr("2023-01-01T00:00:00")},
			{},
			{Expiration: strPtr("not-a-date")},
			{Expiration: strPtr("2023-06-01T00:00:00")},
			{Expiration: strPtr("2023-03-01T00:00:00")},
		},
	}

	got := ResolveExpiration(rec, func(v string, _ error) { skipped = append(skipped, v) })

	assert.Equal(t, "2023-06-01T00:00:00", got)
	assert.Equal(t, []string{"not-a-date"}, skipped)
}

func TestResolveExpirationEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ResolveExpiration(&models.Record{}, nil))

	rec := &models.Record{
		Indicators: []models.Indicator{
			{Expiration: strPtr("")},
			{Expiration: strPtr("2024-06-15")},
		},
	}
	assert.Empty(t, ResolveExpiration(rec, nil))
}

func TestTablesAreCopies(t *testing.T) {
	t.Parallel()

	table := AttackTypeTable()
	require.NotEmpty(t, table)

	table[0].Category = models.AttackTypeUnknown
	assert.Equal(t, models.AttackTypeRansomware, AttackTypeTable()[0].Category)
}

func TestTablesAreLowerCase(t *testing.T) {
	t.Parallel()

	check := func(keywords []string) {
		for _, k := range keywords {
			assert.Equal(t, k, toLowerASCII(k), "keyword %q must be lower case", k)
		}
	}

	check(keywordsOf(AttackTypeTable()))
	check(keywordsOf(AttackVectorTable()))
	check(keywordsOf(UrgencyTable()))
	check(keywordsOf(TargetTable()))
}

func keywordsOf[T comparable](table Table[T]) []string {
	out := make([]string, 0, len(table))
	for _, r := range table {
		out = append(out, r.Keyword)
	}

	return out
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}

	return string(b)
}
