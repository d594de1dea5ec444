package dsl

import (
	"strconv"

	"github.com/tabmaster/tabmaster/pkg/rule"
)

// Actions with no parameters in the DSL.
var plainActions = map[string]bool{
	"close":   true,
	"pin":     true,
	"unpin":   true,
	"mute":    true,
	"unmute":  true,
	"suspend": true,
}

func (p *parser) parseActions() ([]rule.Action, error) {
	var actions []rule.Action

	for {
		a, err := p.parseAction()
		if err != nil {
			return nil, err
		}

		actions = append(actions, a)

		if p.peek().Type != AND {
			return actions, nil
		}

		p.next()
	}
}

func (p *parser) parseAction() (rule.Action, error) {
	tok, err := p.expect(IDENT)
	if err != nil {
		return rule.Action{}, err
	}

	switch {
	case plainActions[tok.Value]:
		return rule.NewAction(tok.Value, nil), nil
	case tok.Value == "snooze":
		return p.parseSnooze()
	case tok.Value == "group":
		return p.parseGroupAction()
	case tok.Value == "bookmark":
		return p.parseBookmark()
	case tok.Value == "move":
		return p.parseMove()
	}

	return rule.Action{}, p.errExpected("an action name", tok)
}

// snooze for <duration> [wakeInto "<group>"]
func (p *parser) parseSnooze() (rule.Action, error) {
	if err := p.expectWord("for"); err != nil {
		return rule.Action{}, err
	}

	durTok, err := p.expect(DURATION)
	if err != nil {
		return rule.Action{}, err
	}

	dur, err := rule.ParseDuration(durTok.Value)
	if err != nil {
		return rule.Action{}, p.errExpected("a duration", durTok)
	}

	params := map[string]any{"duration": dur}

	if p.peek().Type == IDENT && p.peek().Value == "wakeInto" {
		p.next()

		name, err := p.expect(STRING)
		if err != nil {
			return rule.Action{}, err
		}

		params["wakeInto"] = name.Value
	}

	return rule.NewAction("snooze", params), nil
}

// group | group name "<n>" | group by <domain|window>
func (p *parser) parseGroupAction() (rule.Action, error) {
	tok := p.peek()
	if tok.Type != IDENT {
		return rule.NewAction("group", nil), nil
	}

	switch tok.Value {
	case "name":
		p.next()

		name, err := p.expect(STRING)
		if err != nil {
			return rule.Action{}, err
		}

		return rule.NewAction("group", map[string]any{"name": name.Value}), nil

	case "by":
		p.next()

		by, err := p.expect(IDENT)
		if err != nil {
			return rule.Action{}, err
		}

		if by.Value != "domain" && by.Value != "window" {
			return rule.Action{}, p.errExpected(`"domain" or "window"`, by)
		}

		return rule.NewAction("group", map[string]any{"by": by.Value}), nil
	}

	return rule.NewAction("group", nil), nil
}

// bookmark [to "<folder>"]
func (p *parser) parseBookmark() (rule.Action, error) {
	if p.peek().Type == IDENT && p.peek().Value == "to" {
		p.next()

		folder, err := p.expect(STRING)
		if err != nil {
			return rule.Action{}, err
		}

		return rule.NewAction("bookmark", map[string]any{"folder": folder.Value}), nil
	}

	return rule.NewAction("bookmark", nil), nil
}

// move to window <id> [at <index>]
//
// Omitting the index places the tab at the end of the window, encoded as -1.
func (p *parser) parseMove() (rule.Action, error) {
	if err := p.expectWord("to"); err != nil {
		return rule.Action{}, err
	}

	if err := p.expectWord("window"); err != nil {
		return rule.Action{}, err
	}

	idTok, err := p.expect(NUMBER)
	if err != nil {
		return rule.Action{}, err
	}

	id, err := strconv.ParseFloat(idTok.Value, 64)
	if err != nil {
		return rule.Action{}, p.errExpected("a window id", idTok)
	}

	params := map[string]any{"windowId": id, "index": float64(-1)}

	if p.peek().Type == IDENT && p.peek().Value == "at" {
		p.next()

		idxTok, err := p.expect(NUMBER)
		if err != nil {
			return rule.Action{}, err
		}

		idx, err := strconv.ParseFloat(idxTok.Value, 64)
		if err != nil {
			return rule.Action{}, p.errExpected("an index", idxTok)
		}

		params["index"] = idx
	}

	return rule.NewAction("move", params), nil
}

// trigger immediate | onAction | manual | repeat every <dur> | once at "<ts>"
func (p *parser) parseTrigger() (*rule.Trigger, error) {
	tok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}

	switch tok.Value {
	case "immediate":
		return &rule.Trigger{Kind: rule.TriggerImmediate}, nil

	case "onAction", "manual":
		return &rule.Trigger{Kind: rule.TriggerOnAction}, nil

	case "repeat":
		if err := p.expectWord("every"); err != nil {
			return nil, err
		}

		durTok, err := p.expect(DURATION)
		if err != nil {
			return nil, err
		}

		dur, err := rule.ParseDuration(durTok.Value)
		if err != nil {
			return nil, p.errExpected("a duration", durTok)
		}

		return &rule.Trigger{Kind: rule.TriggerInterval, Every: dur}, nil

	case "once":
		if err := p.expectWord("at"); err != nil {
			return nil, err
		}

		at, err := p.expect(STRING)
		if err != nil {
			return nil, err
		}

		return &rule.Trigger{Kind: rule.TriggerOnce, At: at.Value}, nil
	}

	return nil, p.errExpected("a trigger spec", tok)
}

func (p *parser) expectWord(word string) error {
	tok := p.peek()
	if tok.Type != IDENT || tok.Value != word {
		return p.errExpected(strconv.Quote(word), tok)
	}

	p.next()

	return nil
}
