package canon

import (
  "strings"
  "testing"

  "github.com/stretchr/testify/assert"
)

func TestInferCanonicalLaw_Deterministic(t *testing.T) {
  in := Input{
    Title:               "California Advances Age-Appropriate Design Code Act",
    Summary:             "Legislators moved the bill forward in committee.",
    JurisdictionCountry: "US",
    JurisdictionState:   "California",
  }

  first := InferCanonicalLaw(in)
  for i := 0; i < 5; i++ {
    again := InferCanonicalLaw(in)
    assert.Equal(t, first, again)
  }
  assert.Equal(t, "AB-2273", first.LawIdentifier)
}

func TestInferCanonicalLaw_DSARequiresEUContext(t *testing.T) {
  noContext := InferCanonicalLaw(Input{
    Title: "DSA is a popular acronym used loosely here",
  })
  assert.NotEqual(t, "EU-DSA", noContext.LawIdentifier)

  withContext := InferCanonicalLaw(Input{
    Title:   "European Commission opens DSA investigation into minors' protections",
    Summary: "The Commission cited Article 28 obligations regarding minors.",
  })
  assert.Equal(t, "EU-DSA", withContext.LawIdentifier)
}

func TestInferCanonicalLaw_JurisdictionDistinguishesLaws(t *testing.T) {
  uk := InferCanonicalLaw(Input{Title: "UK Online Safety Act enforcement begins", JurisdictionCountry: "UK"})
  au := InferCanonicalLaw(Input{Title: "Australia's Online Safety Act updated by ACMA", JurisdictionCountry: "AU"})

  assert.NotEqual(t, uk.LawKey, au.LawKey)
  assert.Equal(t, "UK-OSA-2023", uk.LawIdentifier)
  assert.Equal(t, "AU-OSA-2021", au.LawIdentifier)
}

func TestInferCanonicalLaw_NarrativePrefixRejected(t *testing.T) {
  in := Input{
    Title: "Lawmakers introduce a bill that potentially claims broad new online safety protections for children",
  }
  res := InferCanonicalLaw(in)

  assert.Equal(t, "Child Online Safety Law", res.LawName)
  assert.NotContains(t, strings.ToLower(res.LawName), "potentially")
  assert.NotContains(t, res.LawName, "...")
  assert.NotContains(t, res.LawName, "Framework")
}

func TestInferCanonicalLaw_BillOnlyFallback(t *testing.T) {
  res := InferCanonicalLaw(Input{Title: "Committee advances SB-976 without amendment"})
  assert.Equal(t, "SB-976", res.LawIdentifier)
  assert.Equal(t, "SB-976 Bill", res.LawName)
  assert.Equal(t, "bill", res.LawType)
}

func TestInferCanonicalLaw_SubjectLineFallback(t *testing.T) {
  res := InferCanonicalLaw(Input{Title: "Regulators signal closer scrutiny of minors' data handling practices"})
  assert.Equal(t, "Child Data Privacy Law", res.LawName)
}

func TestInferCanonicalLaw_UnspecifiedWhenTitleEmpty(t *testing.T) {
  res := InferCanonicalLaw(Input{})
  assert.Equal(t, "Unspecified Law", res.LawName)
  assert.Equal(t, "global:", res.LawKey[:len("global:")])
}
