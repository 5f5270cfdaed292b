package wiki

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/wikipub/internal/model"
)

// queryResponse is the action=query response in formatversion 2
type queryResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Normalized []titleMapping    `json:"normalized"`
		Redirects  []titleMapping    `json:"redirects"`
		Pages      []queryPage       `json:"pages"`
		AllPages   []listedPage      `json:"allpages"`
		EmbeddedIn []listedPage      `json:"embeddedin"`
		Tokens     map[string]string `json:"tokens"`
	} `json:"query"`
}

type titleMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type listedPage struct {
	NS    int    `json:"ns"`
	Title string `json:"title"`
}

type queryPage struct {
	Title     string `json:"title"`
	Missing   bool   `json:"missing"`
	Invalid   bool   `json:"invalid"`
	Redirect  bool   `json:"redirect"`
	Revisions []struct {
		Slots struct {
			Main struct {
				Content string `json:"content"`
			} `json:"main"`
		} `json:"slots"`
	} `json:"revisions"`
}

// entitiesResponse is the wbgetentities response
type entitiesResponse struct {
	Entities map[string]entityJSON `json:"entities"`
}

type entityJSON struct {
	ID      string                     `json:"id"`
	Missing json.RawMessage            `json:"missing"`
	Labels  map[string]labelJSON       `json:"labels"`
	Claims  map[string][]statementJSON `json:"claims"`
}

type labelJSON struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// claimsResponse is the wbgetclaims response
type claimsResponse struct {
	Claims map[string][]statementJSON `json:"claims"`
}

// claimResponse is returned by wbcreateclaim, wbsetclaimvalue and wbsetqualifier
type claimResponse struct {
	Claim statementJSON `json:"claim"`
}

type statementJSON struct {
	ID         string                `json:"id"`
	Mainsnak   snakJSON              `json:"mainsnak"`
	Qualifiers map[string][]snakJSON `json:"qualifiers"`
}

type snakJSON struct {
	Snaktype  string `json:"snaktype"`
	Property  string `json:"property"`
	Datavalue *struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"datavalue"`
}

type entityIDValue struct {
	EntityType string `json:"entity-type"`
	NumericID  int64  `json:"numeric-id"`
	ID         string `json:"id,omitempty"`
}

// target converts a snak into a claim target
func (s snakJSON) target() model.Target {
	if s.Snaktype != "value" || s.Datavalue == nil {
		return model.Target{Literal: s.Snaktype}
	}
	if s.Datavalue.Type == "wikibase-entityid" {
		var v entityIDValue
		if err := json.Unmarshal(s.Datavalue.Value, &v); err == nil {
			if id, ok := model.ParseItemID(v.ID); ok {
				return model.ItemTarget(id)
			}
			if v.NumericID > 0 && (v.EntityType == "" || v.EntityType == "item") {
				return model.ItemTarget(model.ItemID("Q" + strconv.FormatInt(v.NumericID, 10)))
			}
		}
	}
	return model.Target{Literal: strings.Trim(string(s.Datavalue.Value), `"`)}
}

func (st statementJSON) claim() model.Claim {
	c := model.Claim{
		ID:       st.ID,
		Property: model.PropertyID(st.Mainsnak.Property),
		Target:   st.Mainsnak.target(),
	}
	for prop, snaks := range st.Qualifiers {
		for _, q := range snaks {
			t := q.target()
			if c.Qualifiers == nil {
				c.Qualifiers = make(map[model.PropertyID][]model.ItemID)
			}
			// Non-item qualifiers still count as qualifiers
			id := t.Item
			if id == "" {
				id = model.ItemID(t.String())
			}
			c.Qualifiers[model.PropertyID(prop)] = append(c.Qualifiers[model.PropertyID(prop)], id)
		}
	}
	return c
}

func (e entityJSON) item() *model.Item {
	it := &model.Item{
		ID:     model.ItemID(e.ID),
		Labels: make(map[string]string, len(e.Labels)),
		Claims: make(map[model.PropertyID][]model.Claim, len(e.Claims)),
	}
	for lang, l := range e.Labels {
		it.Labels[lang] = l.Value
	}
	for prop, sts := range e.Claims {
		it.Claims[model.PropertyID(prop)] = claimsOf(sts)
	}
	return it
}

func claimsOf(sts []statementJSON) []model.Claim {
	out := make([]model.Claim, 0, len(sts))
	for _, st := range sts {
		out = append(out, st.claim())
	}
	return out
}

// itemValue encodes an item reference for wbcreateclaim and friends
func itemValue(id model.ItemID) (string, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(string(id), "Q"), 10, 64)
	if err != nil || !strings.HasPrefix(string(id), "Q") {
		return "", fmt.Errorf("invalid item id %q", id)
	}
	data, err := json.Marshal(entityIDValue{EntityType: "item", NumericID: n})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
