package sandbox

import (
	"github.com/dop251/goja"

	"github.com/thomasgraf-at/webcontent-api/internal/dom"
)

// buildAPI materializes the read-only api object handed to extraction
// functions. Every proxy method crosses synchronously into the host
// bridge; the sandbox never holds a live DOM reference.
func (r *Runtime) buildAPI(inv *Invocation) (*goja.Object, error) {
	api := r.vm.NewObject()
	if err := api.Set("html", inv.HTML); err != nil {
		return nil, err
	}
	if err := api.Set("url", inv.URL); err != nil {
		return nil, err
	}

	query := func(call goja.FunctionCall) goja.Value {
		if inv.Bridge == nil {
			return goja.Null()
		}
		snap, ok := inv.Bridge.Query(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return r.nodeProxy(inv.Bridge, snap)
	}
	queryAll := func(call goja.FunctionCall) goja.Value {
		if inv.Bridge == nil {
			return r.vm.ToValue([]any{})
		}
		return r.proxyList(inv.Bridge, inv.Bridge.QueryAll(call.Argument(0).String()))
	}

	api.Set("$", query)
	api.Set("querySelector", query)
	api.Set("$$", queryAll)
	api.Set("querySelectorAll", queryAll)

	return api, nil
}

// nodeProxy wraps a snapshot as a sandbox object. Scalar fields are
// copies; traversal properties are lazy accessors so cyclic DOM
// structure never materializes eagerly.
func (r *Runtime) nodeProxy(br *dom.Bridge, snap *dom.Snapshot) goja.Value {
	obj := r.vm.NewObject()
	id := snap.ID

	obj.Set("id", int(id))
	obj.Set("tag", snap.Tag)
	obj.Set("text", snap.Text)
	obj.Set("html", snap.HTML)
	obj.Set("outerHtml", snap.OuterHTML)
	obj.Set("attrs", snap.Attrs)
	obj.Set("dataAttrs", snap.DataAttrs)
	obj.Set("classes", snap.Classes)

	attrs := snap.Attrs
	dataAttrs := snap.DataAttrs
	classes := snap.Classes

	obj.Set("attr", func(call goja.FunctionCall) goja.Value {
		if v, ok := attrs[call.Argument(0).String()]; ok {
			return r.vm.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("dataAttr", func(call goja.FunctionCall) goja.Value {
		if v, ok := dataAttrs[call.Argument(0).String()]; ok {
			return r.vm.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("hasClass", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		for _, c := range classes {
			if c == name {
				return r.vm.ToValue(true)
			}
		}
		return r.vm.ToValue(false)
	})

	childQuery := func(call goja.FunctionCall) goja.Value {
		child, ok := br.ChildQuery(id, call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return r.nodeProxy(br, child)
	}
	childQueryAll := func(call goja.FunctionCall) goja.Value {
		return r.proxyList(br, br.ChildQueryAll(id, call.Argument(0).String()))
	}
	obj.Set("$", childQuery)
	obj.Set("querySelector", childQuery)
	obj.Set("$$", childQueryAll)
	obj.Set("querySelectorAll", childQueryAll)

	obj.Set("closest", func(call goja.FunctionCall) goja.Value {
		anc, ok := br.Closest(id, call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return r.nodeProxy(br, anc)
	})
	obj.Set("parent", func(call goja.FunctionCall) goja.Value {
		sel := ""
		if arg := call.Argument(0); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			sel = arg.String()
		}
		p, ok := br.Parent(id, sel)
		if !ok {
			return goja.Null()
		}
		return r.nodeProxy(br, p)
	})

	r.defineAccessor(obj, "children", func() goja.Value {
		return r.proxyList(br, br.Children(id))
	})
	r.defineAccessor(obj, "firstChild", func() goja.Value {
		snap, ok := br.FirstChild(id)
		return r.proxyMaybe(br, snap, ok)
	})
	r.defineAccessor(obj, "lastChild", func() goja.Value {
		snap, ok := br.LastChild(id)
		return r.proxyMaybe(br, snap, ok)
	})
	r.defineAccessor(obj, "nextSibling", func() goja.Value {
		snap, ok := br.NextSibling(id)
		return r.proxyMaybe(br, snap, ok)
	})
	r.defineAccessor(obj, "prevSibling", func() goja.Value {
		snap, ok := br.PrevSibling(id)
		return r.proxyMaybe(br, snap, ok)
	})

	return obj
}

func (r *Runtime) defineAccessor(obj *goja.Object, name string, get func() goja.Value) {
	getter := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return get()
	})
	obj.DefineAccessorProperty(name, getter, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func (r *Runtime) proxyMaybe(br *dom.Bridge, snap *dom.Snapshot, ok bool) goja.Value {
	if !ok {
		return goja.Null()
	}
	return r.nodeProxy(br, snap)
}

func (r *Runtime) proxyList(br *dom.Bridge, snaps []*dom.Snapshot) goja.Value {
	out := make([]any, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, r.nodeProxy(br, s))
	}
	return r.vm.ToValue(out)
}
