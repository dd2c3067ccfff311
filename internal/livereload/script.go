package livereload

// ClientScript is served at /livereload.js and injected into HTML pages.
// Full reloads refresh the page; style injections re-fetch matching stylesheets
// (all of them when no stylesheet is named) without reloading.
const ClientScript = `(() => {
  if (window.__SITEBUILDER_LR__) return;
  window.__SITEBUILDER_LR__ = true;
  function swapStyles(path) {
    const stamp = Date.now();
    document.querySelectorAll('link[rel="stylesheet"]').forEach((link) => {
      const url = new URL(link.href, location.href);
      if (path && url.pathname !== path) return;
      url.searchParams.set('lr', stamp);
      link.href = url.toString();
    });
  }
  function connect() {
    const es = new EventSource('/livereload');
    es.onmessage = (e) => {
      try {
        const evt = JSON.parse(e.data);
        if (evt.kind === 'style-injection') { swapStyles(evt.stylesheet); return; }
        location.reload();
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`
