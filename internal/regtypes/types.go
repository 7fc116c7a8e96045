// Package regtypes holds the small set of enums and numeric-clamping
// rules the analyzer applies to raw LLM output, so there is exactly one
// definition of "valid stage" or "how a raw score gets clamped". The
// store and the backfill engine take stage and scores as plain values
// and do not re-validate them.
package regtypes

import "math"

type Stage string

const (
  StageProposed        Stage = "proposed"
  StageIntroduced       Stage = "introduced"
  StageCommitteeReview  Stage = "committee_review"
  StagePassed           Stage = "passed"
  StageEnacted          Stage = "enacted"
  StageEffective        Stage = "effective"
  StageAmended          Stage = "amended"
  StageWithdrawn        Stage = "withdrawn"
  StageRejected         Stage = "rejected"
)

var allStages = map[Stage]bool{
  StageProposed: true, StageIntroduced: true, StageCommitteeReview: true,
  StagePassed: true, StageEnacted: true, StageEffective: true,
  StageAmended: true, StageWithdrawn: true, StageRejected: true,
}

// CoerceStage returns s if it is one of the allowed enum values,
// otherwise the default "proposed".
func CoerceStage(s string) Stage {
  st := Stage(s)
  if allStages[st] {
    return st
  }
  return StageProposed
}

type AgeBracket string

const (
  AgeBracket13to15 AgeBracket = "13-15"
  AgeBracket16to18 AgeBracket = "16-18"
  AgeBracketBoth   AgeBracket = "both"
)

var allAgeBrackets = map[AgeBracket]bool{
  AgeBracket13to15: true, AgeBracket16to18: true, AgeBracketBoth: true,
}

// CoerceAgeBracket returns b if allowed, otherwise the default "both".
func CoerceAgeBracket(b string) AgeBracket {
  ab := AgeBracket(b)
  if allAgeBrackets[ab] {
    return ab
  }
  return AgeBracketBoth
}

// ClampScore rounds half-up and clamps to [1, 5]; non-finite or absent
// values fall back to 3.
func ClampScore(v float64, present bool) int {
  if !present || math.IsNaN(v) || math.IsInf(v, 0) {
    return 3
  }
  rounded := int(math.Floor(v + 0.5))
  if rounded < 1 {
    return 1
  }
  if rounded > 5 {
    return 5
  }
  return rounded
}
