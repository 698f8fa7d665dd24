package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrompt_ShortTextIsAlwaysZero(t *testing.T) {
	// 100文字未満はどんな内容でも必ず 0.0。キーワードを含んでいても変わらない。
	cases := []string{
		"",
		"short",
		"mask overlay divider % screen avoid reference exact layout slot",
		strings.Repeat("a", MinPromptLength-1),
	}
	for _, text := range cases {
		assert.Zero(t, Prompt(text), "text: %q", text)
	}
}

func TestPrompt_MultibyteTextIsCountedInRunes(t *testing.T) {
	// 40文字（バイト数では120）の全角テキストは100文字未満なので必ず 0.0 なのだ。
	assert.Zero(t, Prompt(strings.Repeat("あ", 40)))

	// 長さ成分も文字数基準なのだ: 1000文字（3000バイト）→ 1000/5000 = 0.2
	got := Prompt(strings.Repeat("あ", 1000))
	assert.InDelta(t, 0.2, got, 1e-9)
}

func TestPrompt_LengthComponentOnly(t *testing.T) {
	// キーワードを一切含まない長文は長さ成分のみ。5000文字で上限0.3に達する。
	neutral := strings.Repeat("z ", 2500) // 5000文字、述語には一切掛からない
	got := Prompt(neutral)
	assert.InDelta(t, 0.3, got, 1e-9)
}

func TestPrompt_MonotonicInSatisfiedPredicates(t *testing.T) {
	// 長さを一定に保ったまま成立する述語を増やすと、スコアは単調非減少になる。
	const padLen = 600
	pad := func(s string) string {
		if len(s) >= padLen {
			return s
		}
		return s + strings.Repeat(".", padLen-len(s))
	}

	stages := []string{
		"",
		"mask do not",
		"mask do not divider %",
		"mask do not divider % screen avoid",
		"mask do not divider % screen avoid reference exact",
		"mask do not divider % screen avoid reference exact layout slot",
		"mask do not divider % screen avoid reference exact layout slot multiple",
		"mask do not divider % screen avoid reference exact layout slot multiple x=",
		"mask do not divider % screen avoid reference exact layout slot multiple x= flat",
		"mask do not divider % screen avoid reference exact layout slot multiple x= flat 1:1",
		"mask do not divider % screen avoid reference exact layout slot multiple x= flat 1:1 seamless",
	}

	prev := -1.0
	for i, stage := range stages {
		got := Prompt(pad(stage))
		assert.GreaterOrEqual(t, got, prev, "stage %d: %q", i, stage)
		prev = got
	}

	// 全述語成立時は 0.7 のキーワード成分 + 長さ成分で 1.0 近くになる
	full := Prompt(pad(stages[len(stages)-1]))
	assert.Greater(t, full, 0.7)
	assert.LessOrEqual(t, full, 1.0)
}

func TestPrompt_ClampedToOne(t *testing.T) {
	all := "mask do not overlay divider % coordinate screen avoid grey reference exact do not invent " +
		"layout slot position multiple image source x= y= hardware do not 2d flat 1:1 aspect seamless continuous unified"
	long := all + strings.Repeat(" filler", 2000)
	assert.LessOrEqual(t, Prompt(long), 1.0)
}
