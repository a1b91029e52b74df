package pageocr

// NeutralizeCounts reports how many elements the fixed/sticky neutralizer
// changed.
type NeutralizeCounts struct {
	Fixed  int `json:"fixed"`
	Sticky int `json:"sticky"`
}

// neutralizeScript turns position:fixed into absolute and position:sticky
// into relative so headers and banners appear once instead of in every
// segment. Elements already handled carry a data attribute, which makes a
// second run a no-op.
const neutralizeScript = `(() => {
  let fixed = 0, sticky = 0;
  for (const el of document.querySelectorAll('body *')) {
    if (el.dataset.pageocrNeutralized) continue;
    const pos = getComputedStyle(el).position;
    if (pos === 'fixed') {
      el.style.setProperty('position', 'absolute', 'important');
      el.dataset.pageocrNeutralized = 'fixed';
      fixed++;
    } else if (pos === 'sticky' || pos === '-webkit-sticky') {
      el.style.setProperty('position', 'relative', 'important');
      el.dataset.pageocrNeutralized = 'sticky';
      sticky++;
    }
  }
  return {fixed, sticky};
})()`

// scrollStepScript scrolls down one viewport and reports whether the
// bottom of the document has been reached.
const scrollStepScript = `(() => {
  window.scrollBy(0, window.innerHeight);
  const h = Math.max(document.body ? document.body.scrollHeight : 0, document.documentElement.scrollHeight);
  return window.scrollY + window.innerHeight >= h - 1;
})()`

// pageHeightScript measures the full document height in CSS pixels.
const pageHeightScript = `(() => Math.max(
  document.body ? document.body.scrollHeight : 0,
  document.body ? document.body.offsetHeight : 0,
  document.documentElement.scrollHeight,
  document.documentElement.offsetHeight,
  document.documentElement.clientHeight
))()`

// scrollToScript scrolls to an absolute offset and returns the resulting
// scrollY. Format with the offset.
const scrollToScript = `(() => { window.scrollTo(0, %d); return window.scrollY; })()`
