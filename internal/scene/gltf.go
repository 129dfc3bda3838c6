package scene

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// LoadGLTF builds an actor from the node hierarchy of a .gltf or .glb file.
// Only transforms and morph target names are read; meshes stay with the renderer.
func LoadGLTF(path string) (*MemActor, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ActorFromDocument(id, doc)
}

// ActorFromDocument converts a decoded glTF document into an actor
func ActorFromDocument(id string, doc *gltf.Document) (*MemActor, error) {
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("no nodes in document")
	}

	nodes := make([]*TransformNode, len(doc.Nodes))
	for i, n := range doc.Nodes {
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		tn := NewTransformNode(name)

		tn.SetPosition(mgl32.Vec3{
			float32(n.Translation[0]),
			float32(n.Translation[1]),
			float32(n.Translation[2]),
		})

		// glTF stores quaternions as x, y, z, w
		rot := mgl32.Quat{
			W: float32(n.Rotation[3]),
			V: mgl32.Vec3{float32(n.Rotation[0]), float32(n.Rotation[1]), float32(n.Rotation[2])},
		}
		if rot.Len() == 0 {
			rot = mgl32.QuatIdent()
		}
		tn.SetRotation(rot.Normalize())

		scale := mgl32.Vec3{float32(n.Scale[0]), float32(n.Scale[1]), float32(n.Scale[2])}
		if scale == (mgl32.Vec3{}) {
			scale = mgl32.Vec3{1, 1, 1}
		}
		tn.SetScale(scale)

		nodes[i] = tn
	}

	hasParent := make([]bool, len(nodes))
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			ci := int(c)
			if ci < 0 || ci >= len(nodes) || ci == i {
				return nil, fmt.Errorf("node %d has invalid child %d", i, ci)
			}
			nodes[i].AddChild(nodes[ci])
			hasParent[ci] = true
		}
	}

	var roots []*TransformNode
	for i, tn := range nodes {
		if !hasParent[i] {
			roots = append(roots, tn)
		}
	}

	var root Node
	switch len(roots) {
	case 0:
		return nil, fmt.Errorf("node hierarchy has no root")
	case 1:
		root = roots[0]
	default:
		synthetic := NewTransformNode(NodeRoot)
		for _, r := range roots {
			synthetic.AddChild(r)
		}
		root = synthetic
	}

	return NewActor(id, root, morphTargetNames(doc)), nil
}

// morphTargetNames collects names from mesh extras.targetNames, the
// convention exporters use since glTF itself does not name targets.
func morphTargetNames(doc *gltf.Document) []string {
	var names []string
	for _, mesh := range doc.Meshes {
		extras, ok := mesh.Extras.(map[string]interface{})
		if !ok {
			continue
		}
		targetNames, ok := extras["targetNames"].([]interface{})
		if !ok {
			continue
		}
		for _, tn := range targetNames {
			if s, ok := tn.(string); ok && s != "" {
				names = append(names, s)
			}
		}
	}
	return names
}
