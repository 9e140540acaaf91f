// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

// Numeric values of the enumerations below match the corresponding
// Vulkan enumerants, so a backend can convert them with a plain cast.

// Format is a texel format.
type Format int32

const (
	FormatUndefined       Format = 0
	FormatR8G8B8A8Unorm   Format = 37
	FormatB8G8R8A8Unorm   Format = 44
	FormatB8G8R8A8Srgb    Format = 50
	FormatR32G32B32Sfloat Format = 106
	FormatD16Unorm        Format = 124
	FormatD32Sfloat       Format = 126
)

// ColorSpace of a surface format.
type ColorSpace int32

// ColorSpaceSrgbNonlinear is the only color space every surface supports.
const ColorSpaceSrgbNonlinear ColorSpace = 0

// SurfaceFormat is a format and color space pair a surface accepts.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode is the way a swapchain hands images to the display.
type PresentMode int32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "Immediate"
	case PresentModeMailbox:
		return "Mailbox"
	case PresentModeFifo:
		return "Fifo"
	case PresentModeFifoRelaxed:
		return "FifoRelaxed"
	}
	return "Unknown"
}

// QueueFlags describe the capabilities of a queue family.
type QueueFlags uint32

const (
	QueueGraphics QueueFlags = 0x1
	QueueCompute  QueueFlags = 0x2
	QueueTransfer QueueFlags = 0x4
)

// QueueFamily is one entry of an accelerator's queue family table.
type QueueFamily struct {
	Flags      QueueFlags
	QueueCount int
}

// MemoryProperty flags classify a memory type.
type MemoryProperty uint32

const (
	MemoryDeviceLocal  MemoryProperty = 0x1
	MemoryHostVisible  MemoryProperty = 0x2
	MemoryHostCoherent MemoryProperty = 0x4
	MemoryHostCached   MemoryProperty = 0x8
)

// MemoryType is one entry of an accelerator's memory type table.
type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  int
}

// MemoryRequirements of a created buffer or image.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64

	// TypeBits has bit i set when memory type i may back the resource.
	TypeBits uint32
}

// AcceleratorType is the kind of physical device.
type AcceleratorType int32

const (
	AcceleratorOther AcceleratorType = iota
	AcceleratorIntegrated
	AcceleratorDiscrete
	AcceleratorVirtual
	AcceleratorCPU
)

func (t AcceleratorType) String() string {
	switch t {
	case AcceleratorIntegrated:
		return "Integrated"
	case AcceleratorDiscrete:
		return "Discrete"
	case AcceleratorVirtual:
		return "Virtual"
	case AcceleratorCPU:
		return "CPU"
	}
	return "Other"
}

// AcceleratorProperties identify a physical device.
type AcceleratorProperties struct {
	Name          string
	Type          AcceleratorType
	VendorID      uint32
	DeviceID      uint32
	APIVersion    uint32
	DriverVersion uint32
}

// Extent2D is a width and height in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// UndefinedExtent is reported by surfaces whose size is chosen by the swapchain.
const UndefinedExtent = ^uint32(0)

// SurfaceTransform is a presentation transform.
type SurfaceTransform uint32

// SurfaceTransformIdentity leaves images as rendered.
const SurfaceTransformIdentity SurfaceTransform = 0x1

// CompositeAlpha is the alpha compositing mode of a presented image.
type CompositeAlpha uint32

const (
	CompositeAlphaOpaque  CompositeAlpha = 0x1
	CompositeAlphaInherit CompositeAlpha = 0x8
)

// SurfaceCapabilities as reported for an accelerator and surface pair.
type SurfaceCapabilities struct {
	MinImageCount           int
	MaxImageCount           int
	CurrentExtent           Extent2D
	CurrentTransform        SurfaceTransform
	SupportedCompositeAlpha CompositeAlpha
}

// BufferUsage flags.
type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x1
	BufferUsageTransferDst BufferUsage = 0x2
	BufferUsageUniform     BufferUsage = 0x10
	BufferUsageStorage     BufferUsage = 0x20
	BufferUsageIndex       BufferUsage = 0x40
	BufferUsageVertex      BufferUsage = 0x80
)

// ImageUsage flags.
type ImageUsage uint32

const (
	ImageUsageTransferSrc            ImageUsage = 0x1
	ImageUsageTransferDst            ImageUsage = 0x2
	ImageUsageSampled                ImageUsage = 0x4
	ImageUsageColorAttachment        ImageUsage = 0x10
	ImageUsageDepthStencilAttachment ImageUsage = 0x20
)

// ImageInfo describes a single-sample, optimally tiled 2D image.
type ImageInfo struct {
	Format Format
	Extent Extent2D
	Usage  ImageUsage
}

// ImageAspect selects the aspects of an image a view covers.
type ImageAspect uint32

const (
	ImageAspectColor ImageAspect = 0x1
	ImageAspectDepth ImageAspect = 0x2
)

// ImageViewInfo describes a 2D view with one mip level and one array layer.
type ImageViewInfo struct {
	Image  Image
	Format Format
	Aspect ImageAspect
}

// SwapchainInfo carries the negotiated swapchain parameters.
type SwapchainInfo struct {
	Surface        Surface
	MinImageCount  int
	Format         SurfaceFormat
	Extent         Extent2D
	Usage          ImageUsage
	Transform      SurfaceTransform
	CompositeAlpha CompositeAlpha
	PresentMode    PresentMode

	// QueueFamilies lists the families sharing the images; with more
	// than one the images are created in concurrent sharing mode.
	QueueFamilies []int
}

// ImageLayout of an attachment.
type ImageLayout int32

const (
	ImageLayoutUndefined                     ImageLayout = 0
	ImageLayoutGeneral                       ImageLayout = 1
	ImageLayoutColorAttachmentOptimal        ImageLayout = 2
	ImageLayoutDepthStencilAttachmentOptimal ImageLayout = 3
	ImageLayoutPresentSrc                    ImageLayout = 1000001002
)

// LoadOp of an attachment.
type LoadOp int32

const (
	LoadOpLoad     LoadOp = 0
	LoadOpClear    LoadOp = 1
	LoadOpDontCare LoadOp = 2
)

// StoreOp of an attachment.
type StoreOp int32

const (
	StoreOpStore    StoreOp = 0
	StoreOpDontCare StoreOp = 1
)

// Attachment describes one single-sample render pass attachment.
type Attachment struct {
	Format         Format
	LoadOp         LoadOp
	StoreOp        StoreOp
	StencilLoadOp  LoadOp
	StencilStoreOp StoreOp
	InitialLayout  ImageLayout
	FinalLayout    ImageLayout
}

// AttachmentReference points a subpass at an attachment.
type AttachmentReference struct {
	Attachment int
	Layout     ImageLayout
}

// RenderPassInfo describes a render pass with one graphics subpass.
type RenderPassInfo struct {
	Attachments []Attachment
	Color       []AttachmentReference

	// Depth is optional.
	Depth *AttachmentReference
}

// FramebufferInfo binds attachment views to a render pass.
type FramebufferInfo struct {
	RenderPass  RenderPass
	Attachments []ImageView
	Extent      Extent2D
}

// DescriptorType of a binding.
type DescriptorType int32

const (
	DescriptorTypeUniformBuffer DescriptorType = 6
	DescriptorTypeStorageBuffer DescriptorType = 7
)

// ShaderStage flags.
type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x1
	ShaderStageFragment ShaderStage = 0x10
)

// DescriptorBinding is one binding of a descriptor set layout.
type DescriptorBinding struct {
	Binding int
	Type    DescriptorType
	Count   int
	Stages  ShaderStage
}

// DescriptorPoolSize is the number of descriptors of one type a pool holds.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count int
}

// DescriptorWrite points a descriptor set binding at a buffer range.
type DescriptorWrite struct {
	Set     DescriptorSet
	Binding int
	Type    DescriptorType
	Buffer  Buffer
	Offset  uint64
	Range   uint64
}

// ShaderStageInfo is one programmable stage of a pipeline.
type ShaderStageInfo struct {
	Stage  ShaderStage
	Module ShaderModule
	Entry  string
}

// VertexInputRate of a vertex binding.
type VertexInputRate int32

// VertexInputRateVertex advances per vertex.
const VertexInputRateVertex VertexInputRate = 0

// VertexBinding describes a vertex buffer binding.
type VertexBinding struct {
	Binding int
	Stride  uint32
	Rate    VertexInputRate
}

// VertexAttribute describes one attribute read from a vertex binding.
type VertexAttribute struct {
	Location int
	Binding  int
	Format   Format
	Offset   uint32
}

// PrimitiveTopology of the input assembly.
type PrimitiveTopology int32

// TopologyTriangleList draws independent triangles.
const TopologyTriangleList PrimitiveTopology = 3

// CullMode flags.
type CullMode uint32

const (
	CullNone  CullMode = 0
	CullFront CullMode = 0x1
	CullBack  CullMode = 0x2
)

// FrontFace winding.
type FrontFace int32

const (
	FrontFaceCounterClockwise FrontFace = 0
	FrontFaceClockwise        FrontFace = 1
)

// PolygonMode of rasterization.
type PolygonMode int32

// PolygonModeFill fills triangles.
const PolygonModeFill PolygonMode = 0

// RasterizationState of a pipeline.
type RasterizationState struct {
	DepthClamp  bool
	PolygonMode PolygonMode
	CullMode    CullMode
	FrontFace   FrontFace
	LineWidth   float32
}

// CompareOp for depth testing.
type CompareOp int32

const (
	CompareNever       CompareOp = 0
	CompareLess        CompareOp = 1
	CompareEqual       CompareOp = 2
	CompareLessOrEqual CompareOp = 3
	CompareGreater     CompareOp = 4
	CompareAlways      CompareOp = 7
)

// DepthStencilState of a pipeline.
type DepthStencilState struct {
	DepthTest       bool
	DepthWrite      bool
	DepthCompare    CompareOp
	DepthBoundsTest bool
	StencilTest     bool
}

// ColorComponent write mask flags.
type ColorComponent uint32

const (
	ColorComponentR ColorComponent = 0x1
	ColorComponentG ColorComponent = 0x2
	ColorComponentB ColorComponent = 0x4
	ColorComponentA ColorComponent = 0x8
)

// ColorBlendAttachment state for one color attachment.
type ColorBlendAttachment struct {
	Blend     bool
	WriteMask ColorComponent
}

// DynamicState of a pipeline.
type DynamicState int32

const (
	DynamicStateViewport DynamicState = 0
	DynamicStateScissor  DynamicState = 1
)

// Viewport transform. Scissor follows the viewport rectangle.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// GraphicsPipelineInfo describes a single-sample graphics pipeline for
// subpass 0 of RenderPass.
type GraphicsPipelineInfo struct {
	Stages        []ShaderStageInfo
	Bindings      []VertexBinding
	Attributes    []VertexAttribute
	Topology      PrimitiveTopology
	Viewport      Viewport
	Rasterization RasterizationState
	DepthStencil  DepthStencilState
	ColorBlend    []ColorBlendAttachment
	Dynamic       []DynamicState
	Layout        PipelineLayout
	RenderPass    RenderPass
}

// CommandBufferUsage flags.
type CommandBufferUsage uint32

// CommandBufferOneTimeSubmit marks a buffer submitted exactly once.
const CommandBufferOneTimeSubmit CommandBufferUsage = 0x1

// ClearValue for one attachment; Color is used for color attachments,
// Depth and Stencil for depth attachments.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// RenderPassBegin starts a render pass on a framebuffer.
type RenderPassBegin struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Extent      Extent2D
	ClearValues []ClearValue
}

// IndexType of an index buffer.
type IndexType int32

const (
	IndexTypeUint16 IndexType = 0
	IndexTypeUint32 IndexType = 1
)

// PipelineStage flags.
type PipelineStage uint32

const (
	PipelineStageTopOfPipe             PipelineStage = 0x1
	PipelineStageColorAttachmentOutput PipelineStage = 0x400
	PipelineStageTransfer              PipelineStage = 0x1000
)

// SubmitInfo is one batch submitted to a queue.
type SubmitInfo struct {
	WaitSemaphores   []Semaphore
	WaitStages       []PipelineStage
	CommandBuffers   []CommandBuffer
	SignalSemaphores []Semaphore
}

// PresentInfo queues one swapchain image for presentation.
type PresentInfo struct {
	WaitSemaphores []Semaphore
	Swapchain      Swapchain
	ImageIndex     int
}
