package torch

import (
	"github.com/kbukum/flowtorch/plugin"
)

// Linear is a fully connected layer.
func Linear() *plugin.Func {
	def := define("linear", "Linear", CategoryLayer, "Applies a linear transformation.",
		intField("inFeatures", "In features", true, 1),
		intField("outFeatures", "Out features", true, 1),
		plugin.Field{Key: "bias", Type: plugin.TypeBool, Label: "Bias", Default: true},
	)
	return layer(def, func(s plugin.Settings) string {
		return plugin.Call("nn.Linear",
			plugin.PyValue(s.Int("inFeatures")),
			plugin.PyValue(s.Int("outFeatures")),
			boolKwarg("bias", s.Bool("bias"), true),
		)
	})
}

// Conv2d is a 2D convolution.
func Conv2d() *plugin.Func {
	def := define("conv2d", "Conv2d", CategoryLayer, "Applies a 2D convolution.",
		intField("inChannels", "In channels", true, 1),
		intField("outChannels", "Out channels", true, 1),
		sizeField("kernelSize", "Kernel size", []any{3}),
		sizeField("stride", "Stride", []any{1}),
		plugin.Field{Key: "padding", Type: plugin.TypeInt, Label: "Padding", Default: 0, Min: plugin.Bound(0)},
	)
	return layer(def, func(s plugin.Settings) string {
		return plugin.Call("nn.Conv2d",
			plugin.PyValue(s.Int("inChannels")),
			plugin.PyValue(s.Int("outChannels")),
			plugin.Kwarg("kernel_size", plugin.PyTuple(s.Ints("kernelSize"))),
			plugin.Kwarg("stride", plugin.PyTuple(s.Ints("stride"))),
			plugin.Kwarg("padding", plugin.PyValue(s.Int("padding"))),
		)
	})
}

// ReLU is the rectified linear activation.
func ReLU() *plugin.Func {
	def := define("relu", "ReLU", CategoryActivate, "Rectified linear unit.",
		plugin.Field{Key: "inplace", Type: plugin.TypeBool, Label: "In place", Default: false},
	)
	return layer(def, func(s plugin.Settings) string {
		return plugin.Call("nn.ReLU", boolKwarg("inplace", s.Bool("inplace"), false))
	})
}

// Dropout zeroes elements with probability p.
func Dropout() *plugin.Func {
	def := define("dropout", "Dropout", CategoryLayer, "Randomly zeroes elements during training.",
		plugin.Field{Key: "p", Type: plugin.TypeFloat, Label: "Probability", Default: 0.5, Min: plugin.Bound(0), Max: plugin.Bound(1)},
	)
	return layer(def, func(s plugin.Settings) string {
		return plugin.Call("nn.Dropout", plugin.Kwarg("p", plugin.PyValue(s.Float("p"))))
	})
}

// BatchNorm2d normalizes over a mini-batch of 2D inputs.
func BatchNorm2d() *plugin.Func {
	def := define("batchnorm2d", "BatchNorm2d", CategoryLayer, "Batch normalization over 4D input.",
		intField("numFeatures", "Features", true, 1),
		plugin.Field{Key: "eps", Type: plugin.TypeFloat, Label: "Epsilon", Default: 1e-5, Min: plugin.Bound(0)},
		plugin.Field{Key: "momentum", Type: plugin.TypeFloat, Label: "Momentum", Default: 0.1, Min: plugin.Bound(0), Max: plugin.Bound(1)},
	)
	return layer(def, func(s plugin.Settings) string {
		return plugin.Call("nn.BatchNorm2d",
			plugin.PyValue(s.Int("numFeatures")),
			plugin.Kwarg("eps", plugin.PyValue(s.Float("eps"))),
			plugin.Kwarg("momentum", plugin.PyValue(s.Float("momentum"))),
		)
	})
}

// Flatten flattens a contiguous range of dimensions.
func Flatten() *plugin.Func {
	def := define("flatten", "Flatten", CategoryLayer, "Flattens dimensions into one.",
		plugin.Field{Key: "startDim", Type: plugin.TypeInt, Label: "Start dim", Default: 1},
		plugin.Field{Key: "endDim", Type: plugin.TypeInt, Label: "End dim", Default: -1},
	)
	return layer(def, func(s plugin.Settings) string {
		return plugin.Call("nn.Flatten",
			plugin.Kwarg("start_dim", plugin.PyValue(s.Int("startDim"))),
			plugin.Kwarg("end_dim", plugin.PyValue(s.Int("endDim"))),
		)
	})
}

// MaxPool2d is 2D max pooling. Stride defaults to the kernel size.
func MaxPool2d() *plugin.Func {
	def := define("maxpool2d", "MaxPool2d", CategoryLayer, "Applies 2D max pooling.",
		sizeField("kernelSize", "Kernel size", []any{2}),
		sizeField("stride", "Stride", nil),
	)
	return layer(def, func(s plugin.Settings) string {
		stride := ""
		if s.Has("stride") {
			stride = plugin.PyTuple(s.Ints("stride"))
		}
		return plugin.Call("nn.MaxPool2d",
			plugin.Kwarg("kernel_size", plugin.PyTuple(s.Ints("kernelSize"))),
			plugin.Kwarg("stride", stride),
		)
	})
}

// boolKwarg renders key=value only when value differs from the default.
func boolKwarg(key string, value, def bool) string {
	if value == def {
		return ""
	}
	return plugin.Kwarg(key, plugin.PyValue(value))
}
