package config

import (
	"github.com/specvital/pester/pkg/domain"
)

// ContainerInfo describes a container to run that was not found by path discovery.
type ContainerInfo struct {
	Type domain.ContainerType `json:"type"`
	// Item is a file path or definition text, depending on Type.
	Item string `json:"item"`
	// Data holds one parameter set per generated container.
	Data []map[string]any `json:"data,omitempty"`
}

// NewContainerInfo builds a ContainerInfo. The type is matched ignoring case;
// anything other than File or ScriptBlock fails with domain.ErrInvalidContainerType.
func NewContainerInfo(typ, item string, data ...map[string]any) (ContainerInfo, error) {
	ct, err := domain.ParseContainerType(typ)
	if err != nil {
		return ContainerInfo{}, err
	}
	return ContainerInfo{Type: ct, Item: item, Data: data}, nil
}

// Containers expands the info into one container per data row, or a single
// container when there is no data.
func (ci ContainerInfo) Containers() ([]*domain.Container, error) {
	rows := ci.Data
	if len(rows) == 0 {
		rows = []map[string]any{nil}
	}
	out := make([]*domain.Container, 0, len(rows))
	for _, row := range rows {
		c, err := domain.NewContainer(string(ci.Type), ci.Item, row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (ci ContainerInfo) toMap() map[string]any {
	m := map[string]any{
		"Type": string(ci.Type),
		"Item": ci.Item,
	}
	if len(ci.Data) > 0 {
		rows := make([]any, 0, len(ci.Data))
		for _, row := range ci.Data {
			rows = append(rows, row)
		}
		m["Data"] = rows
	}
	return m
}
