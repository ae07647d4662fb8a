package mturk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `<?xml version="1.0" encoding="ASCII"?>
<QuestionFormAnswers xmlns="http://mechanicalturk.amazonaws.com/AWSMechanicalTurkDataSchemas/2005-10-01/QuestionFormAnswers.xsd">
  <Answer>
    <QuestionIdentifier>Summary</QuestionIdentifier>
    <FreeText>A short &amp; sweet story</FreeText>
  </Answer>
  <Answer>
    <QuestionIdentifier>Approved</QuestionIdentifier>
    <FreeText>yes</FreeText>
  </Answer>
  <Answer>
    <QuestionIdentifier>Empty</QuestionIdentifier>
  </Answer>
</QuestionFormAnswers>`

func TestParseAnswers(t *testing.T) {
	answers, err := ParseAnswers(samplePayload)
	require.NoError(t, err)

	assert.Equal(t, []Answer{
		{QuestionIdentifier: "Summary", FreeText: "A short & sweet story"},
		{QuestionIdentifier: "Approved", FreeText: "yes"},
		{QuestionIdentifier: "Empty", FreeText: ""},
	}, answers)
}

func TestParseAnswers_LowerCaseElements(t *testing.T) {
	answers, err := ParseAnswers(`<questionformanswers><answer><questionidentifier>Tag</questionidentifier><freetext>dog</freetext></answer></questionformanswers>`)
	require.NoError(t, err)
	assert.Equal(t, []Answer{{QuestionIdentifier: "Tag", FreeText: "dog"}}, answers)
}

func TestParseAnswers_Empty(t *testing.T) {
	answers, err := ParseAnswers("")
	require.NoError(t, err)
	assert.Empty(t, answers)
}
