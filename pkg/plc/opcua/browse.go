// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package opcua

import (
	"context"
	"fmt"

	gopcua "github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
)

// defaultBrowseDepth bounds address-space traversal; industrial servers can
// expose tens of thousands of nodes.
const defaultBrowseDepth = 3

// BrowseNode is one node of the server's address space tree. Value and
// DataType are filled for variable nodes only.
type BrowseNode struct {
	NodeID         string        `json:"node_id"`
	BrowseName     string        `json:"browse_name"`
	NamespaceIndex uint16        `json:"namespace"`
	NodeClass      string        `json:"node_class"`
	Value          interface{}   `json:"value,omitempty"`
	DataType       string        `json:"data_type,omitempty"`
	Children       []*BrowseNode `json:"children,omitempty"`
}

// Browse walks the address space from rootID (the Root folder when empty)
// down to maxDepth levels. It opens its own session so a long walk does not
// block polling reads on the pooled one.
func (s *Service) Browse(ctx context.Context, params ConnParams, rootID string, maxDepth int) (*BrowseNode, error) {
	if maxDepth <= 0 {
		maxDepth = defaultBrowseDepth
	}

	sess, err := s.dial(ctx, params)
	if err != nil {
		return nil, errs.Wrap(errs.TransportError, err, "connect %s", params.Endpoint)
	}
	defer sess.Close(context.Background()) //nolint:errcheck

	client, ok := sess.(*gopcua.Client)
	if !ok {
		return nil, errs.New(errs.TransportError, "session does not support browsing")
	}

	var root *ua.NodeID
	if rootID == "" {
		root = ua.NewNumericNodeID(0, id.RootFolder)
	} else {
		root, err = s.parseNodeID(rootID)
		if err != nil {
			return nil, err
		}
	}

	return browse(ctx, client.Node(root), maxDepth)
}

func browse(ctx context.Context, n *gopcua.Node, depth int) (*BrowseNode, error) {
	node := &BrowseNode{NodeID: n.ID.String()}

	attrs, err := n.Attributes(ctx,
		ua.AttributeIDBrowseName, ua.AttributeIDNodeClass,
		ua.AttributeIDValue, ua.AttributeIDDataType)
	if err != nil {
		return nil, errs.Wrap(errs.TransportError, err, "read attributes of %s", n.ID)
	}
	fillBrowseNode(node, attrs)

	if depth <= 1 {
		return node, nil
	}

	children, err := n.Children(ctx, id.HierarchicalReferences, ua.NodeClassAll)
	if err != nil {
		// A leaf that refuses browsing is still a valid node.
		return node, nil
	}
	for _, child := range children {
		cn, err := browse(ctx, child, depth-1)
		if err != nil {
			continue
		}
		node.Children = append(node.Children, cn)
	}
	return node, nil
}

// fillBrowseNode populates a node from its attribute results, in the order
// browse requests them: browse name, node class, value, data type. A bad
// status on any attribute leaves the field empty.
func fillBrowseNode(node *BrowseNode, attrs []*ua.DataValue) {
	if len(attrs) > 0 && attrs[0].Status == ua.StatusOK && attrs[0].Value != nil {
		if qn, ok := attrs[0].Value.Value().(*ua.QualifiedName); ok {
			node.BrowseName = qn.Name
			node.NamespaceIndex = qn.NamespaceIndex
		}
	}
	var class ua.NodeClass
	if len(attrs) > 1 && attrs[1].Status == ua.StatusOK && attrs[1].Value != nil {
		class = ua.NodeClass(attrs[1].Value.Int())
		node.NodeClass = nodeClassName(class)
	}
	if class != ua.NodeClassVariable {
		return
	}
	if len(attrs) > 2 && attrs[2].Status == ua.StatusOK && attrs[2].Value != nil {
		node.Value = attrs[2].Value.Value()
	}
	if len(attrs) > 3 && attrs[3].Status == ua.StatusOK && attrs[3].Value != nil {
		if nid, ok := attrs[3].Value.Value().(*ua.NodeID); ok {
			node.DataType = dataTypeName(nid)
		}
	}
}

func nodeClassName(c ua.NodeClass) string {
	switch c {
	case ua.NodeClassObject:
		return "Object"
	case ua.NodeClassVariable:
		return "Variable"
	case ua.NodeClassMethod:
		return "Method"
	case ua.NodeClassObjectType:
		return "ObjectType"
	case ua.NodeClassVariableType:
		return "VariableType"
	case ua.NodeClassReferenceType:
		return "ReferenceType"
	case ua.NodeClassDataType:
		return "DataType"
	case ua.NodeClassView:
		return "View"
	default:
		return fmt.Sprintf("NodeClass(%d)", int(c))
	}
}

// builtinDataTypes names the namespace-0 scalar data types mappings use;
// anything else is reported as its node id.
var builtinDataTypes = map[string]string{
	"i=1":  "Boolean",
	"i=2":  "SByte",
	"i=3":  "Byte",
	"i=4":  "Int16",
	"i=5":  "UInt16",
	"i=6":  "Int32",
	"i=7":  "UInt32",
	"i=8":  "Int64",
	"i=9":  "UInt64",
	"i=10": "Float",
	"i=11": "Double",
	"i=12": "String",
	"i=13": "DateTime",
}

func dataTypeName(nid *ua.NodeID) string {
	s := nid.String()
	if name, ok := builtinDataTypes[s]; ok {
		return name
	}
	return s
}
